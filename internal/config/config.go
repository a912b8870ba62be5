package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"kioskboard/internal/utils"
)

const DefaultBackendURL = "http://localhost:5000/"

// Config is everything the kiosk, the board and the CLI need to talk to the backend.
type Config struct {
	BackendURL          string
	ListenAddr          string
	PollInterval        time.Duration
	ConfirmationTimeout time.Duration
	RequestTimeout      time.Duration
	LogFile             string
	LogLevel            string
	// StaffPINHash is a bcrypt hash; empty leaves the kitchen board open.
	StaffPINHash string
	SessionKey   string
	// OrderFallback replaces the order snapshot with placeholder orders when a poll fails.
	OrderFallback bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BackendURL:          DefaultBackendURL,
		ListenAddr:          ":8081",
		PollInterval:        5 * time.Second,
		ConfirmationTimeout: 8 * time.Second,
		RequestTimeout:      10 * time.Second,
		LogLevel:            "info",
	}
}

// fileConfig mirrors Config with durations as strings ("5s") for config.json.
type fileConfig struct {
	BackendURL          *string `json:"backendUrl"`
	ListenAddr          *string `json:"listenAddr"`
	PollInterval        *string `json:"pollInterval"`
	ConfirmationTimeout *string `json:"confirmationTimeout"`
	RequestTimeout      *string `json:"requestTimeout"`
	LogFile             *string `json:"logFile"`
	LogLevel            *string `json:"logLevel"`
	StaffPINHash        *string `json:"staffPinHash"`
	SessionKey          *string `json:"sessionKey"`
	OrderFallback       *bool   `json:"orderFallback"`
}

// Load layers defaults, config.json, .env and the environment, in that order.
// An empty path means config.json in the project root; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = utils.ProjectFile("config.json")
	}
	if err := cfg.mergeFile(path); err != nil {
		return Config{}, err
	}

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.mergeEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	cfg.BackendURL = NormalizeBaseURL(cfg.BackendURL)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	setString(&c.BackendURL, fc.BackendURL)
	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.LogFile, fc.LogFile)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.StaffPINHash, fc.StaffPINHash)
	setString(&c.SessionKey, fc.SessionKey)
	if fc.OrderFallback != nil {
		c.OrderFallback = *fc.OrderFallback
	}
	for _, d := range []struct {
		dst *time.Duration
		src *string
		key string
	}{
		{&c.PollInterval, fc.PollInterval, "pollInterval"},
		{&c.ConfirmationTimeout, fc.ConfirmationTimeout, "confirmationTimeout"},
		{&c.RequestTimeout, fc.RequestTimeout, "requestTimeout"},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	// Plain BACKEND_URL is still honoured; the prefixed name wins.
	if v, ok := lookup("BACKEND_URL"); ok && v != "" {
		c.BackendURL = v
	}
	if v, ok := lookup("KIOSK_BACKEND_URL"); ok && v != "" {
		c.BackendURL = v
	}
	if v, ok := lookup("KIOSK_LISTEN_ADDR"); ok && v != "" {
		c.ListenAddr = v
	}
	if v, ok := lookup("KIOSK_LOG_FILE"); ok {
		c.LogFile = v
	}
	if v, ok := lookup("KIOSK_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("KIOSK_STAFF_PIN_HASH"); ok {
		c.StaffPINHash = v
	}
	if v, ok := lookup("KIOSK_SESSION_KEY"); ok {
		c.SessionKey = v
	}
	if v, ok := lookup("KIOSK_ORDER_FALLBACK"); ok && v != "" {
		c.OrderFallback = v == "1" || strings.EqualFold(v, "true")
	}
	for key, dst := range map[string]*time.Duration{
		"KIOSK_POLL_INTERVAL":        &c.PollInterval,
		"KIOSK_CONFIRMATION_TIMEOUT": &c.ConfirmationTimeout,
		"KIOSK_REQUEST_TIMEOUT":      &c.RequestTimeout,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// Validate rejects settings the loops cannot run with.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.ConfirmationTimeout <= 0 {
		return fmt.Errorf("confirmation timeout must be positive, got %s", c.ConfirmationTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend url %q: scheme must be http or https", c.BackendURL)
	}
	return nil
}

// NormalizeBaseURL trims whitespace and guarantees exactly one trailing slash.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBackendURL
	}
	return strings.TrimRight(raw, "/") + "/"
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
