// Package screen holds the kiosk's current screen and the check-in flow that moves between screens.
package screen

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"kioskboard/internal/models"
	"kioskboard/internal/poll"
	"kioskboard/internal/utils"
)

type Name string

const (
	Welcome Name = "welcome"
	CheckIn Name = "checkin"
	Success Name = "success"
	Kitchen Name = "kitchen"
)

var (
	ErrPhoneRequired     = errors.New("phone number is required")
	ErrInvalidTransition = errors.New("invalid screen transition")
	ErrSubmitInProgress  = errors.New("check-in already being submitted")
)

// CheckInPoster records a customer's arrival with the backend.
type CheckInPoster interface {
	CheckIn(ctx context.Context, phone, name string) (models.CheckInResult, error)
}

// State is what the kiosk shows. Phone and Name are the typed inputs;
// Points, CustomerName and CustomerPhone fill the confirmation screen.
type State struct {
	Screen        Name   `json:"screen"`
	Phone         string `json:"phone"`
	Name          string `json:"name"`
	Points        int    `json:"points"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	Submitting    bool   `json:"submitting"`
}

// Router is the kiosk's screen state machine.
type Router struct {
	poster  CheckInPoster
	clock   poll.Clock
	timeout time.Duration
	log     *utils.Logger

	mu    sync.Mutex
	state State
	reset poll.Timer
	seq   uint64 // bumped on every transition; a reset only fires for its own seq
}

func NewRouter(poster CheckInPoster, clock poll.Clock, confirmationTimeout time.Duration, log *utils.Logger) *Router {
	if clock == nil {
		clock = poll.RealClock{}
	}
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &Router{
		poster:  poster,
		clock:   clock,
		timeout: confirmationTimeout,
		log:     log.WithFields(map[string]any{"component": "screen"}),
		state:   State{Screen: Welcome},
	}
}

// State returns a copy of the current state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Timeout is how long the confirmation screen stays up.
func (r *Router) Timeout() time.Duration { return r.timeout }

// Begin moves from the welcome screen to the check-in form.
func (r *Router) Begin() (State, error) {
	return r.move(Welcome, CheckIn)
}

// OpenKitchen moves from the welcome screen to the kitchen board.
func (r *Router) OpenKitchen() (State, error) {
	return r.move(Welcome, Kitchen)
}

func (r *Router) move(from, to Name) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Screen != from {
		return r.state, ErrInvalidTransition
	}
	r.transitionLocked()
	r.state.Screen = to
	return r.state, nil
}

// SetInput records what the customer has typed so far.
func (r *Router) SetInput(phone, name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Phone = phone
	r.state.Name = name
	return r.state
}

// Submit posts the typed phone and name. Apart from an empty phone, it always
// lands on the success screen: a backend failure is logged and the typed
// values are shown with zero points. The kiosk returns to the welcome screen
// after the confirmation timeout.
func (r *Router) Submit(ctx context.Context) (State, error) {
	r.mu.Lock()
	if r.state.Screen != CheckIn {
		st := r.state
		r.mu.Unlock()
		return st, ErrInvalidTransition
	}
	if r.state.Submitting {
		st := r.state
		r.mu.Unlock()
		return st, ErrSubmitInProgress
	}
	phone := strings.TrimSpace(r.state.Phone)
	name := strings.TrimSpace(r.state.Name)
	if phone == "" {
		st := r.state
		r.mu.Unlock()
		return st, ErrPhoneRequired
	}
	r.state.Submitting = true
	started := r.seq
	r.mu.Unlock()

	log := r.log.WithFields(map[string]any{"action": "checkin", "phone": phone})
	log.Info("check-in initiated")
	res, err := r.poster.CheckIn(ctx, phone, name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq != started {
		// Reset while the request was out; stay where the kiosk is now.
		log.Info("check-in finished after reset")
		return r.state, nil
	}
	r.state.Submitting = false
	r.state.Points = 0
	r.state.CustomerName = name
	r.state.CustomerPhone = phone
	if err != nil {
		var httpErr *utils.HTTPError
		if errors.As(err, &httpErr) {
			log.WithError(err).Warn(httpErr.Message)
		} else {
			log.WithError(err).Warn("failed to check in")
		}
	} else {
		r.state.Points = res.RewardPoints
		if res.CustomerName != "" {
			r.state.CustomerName = res.CustomerName
		}
		if res.CustomerPhone != "" {
			r.state.CustomerPhone = res.CustomerPhone
		}
		log.WithFields(map[string]any{"points": res.RewardPoints}).Info("check-in recorded")
	}

	r.transitionLocked()
	r.state.Screen = Success
	seq := r.seq
	r.reset = r.clock.AfterFunc(r.timeout, func() { r.expire(seq) })
	return r.state, nil
}

// Reset returns to the welcome screen immediately and clears all inputs.
func (r *Router) Reset() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitionLocked()
	r.state = State{Screen: Welcome}
	return r.state
}

// Close cancels a pending confirmation reset.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitionLocked()
}

func (r *Router) expire(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq != seq {
		return
	}
	r.reset = nil
	r.state = State{Screen: Welcome}
	r.log.Debug("confirmation timed out, back to welcome")
}

// transitionLocked invalidates any scheduled reset. r.mu must be held.
func (r *Router) transitionLocked() {
	r.seq++
	if r.reset != nil {
		r.reset.Stop()
		r.reset = nil
	}
}
