package env

import (
	"fmt"
	"log/slog"
)

type Mode string

const (
	Test  Mode = "test"
	Local Mode = "local"
	Dev   Mode = "dev"
	Prod  Mode = "prod"
)

func (e Mode) String() string {
	return string(e)
}

func (e Mode) Validate() bool {
	switch e {
	case Local, Test, Dev, Prod:
		return true
	default:
		return false
	}
}

// UnmarshalText lets Mode be decoded straight from environment variables.
func (e *Mode) UnmarshalText(text []byte) error {
	m := Mode(text)
	if !m.Validate() {
		return fmt.Errorf("invalid mode %q, expected one of test, local, dev, prod", text)
	}
	*e = m
	return nil
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (e Mode) SecureCookies() bool {
	return e == Dev || e == Prod
}

func (e Mode) SlogLevel() slog.Level {
	switch e {
	case Test, Local, Dev:
		return slog.LevelDebug
	case Prod:
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
