package utils

import "fmt"

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func New(code int, message string) error {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}
