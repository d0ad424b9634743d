// Package upstream turns failures of external collaborators into empty results.
//
// Document stores, embedding providers and origin fetchers report errors
// normally. Callers that must never fail collapse those errors with OrEmpty or
// OrZero, which log the degradation and hand back an empty value.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnavailable marks a collaborator that is down, disabled or timed out.
var ErrUnavailable = errors.New("upstream unavailable")

// Unavailable wraps the failure of a named upstream service.
type Unavailable struct {
	Service string
	Err     error
}

func (u *Unavailable) Error() string {
	if u.Err == nil {
		return fmt.Sprintf("%s: %s", u.Service, ErrUnavailable)
	}
	return fmt.Sprintf("%s unavailable: %v", u.Service, u.Err)
}

func (u *Unavailable) Unwrap() error {
	return u.Err
}

// Is reports every Unavailable as ErrUnavailable.
func (u *Unavailable) Is(target error) bool {
	return target == ErrUnavailable
}

// Wrap tags err as an unavailability of service. A nil err stays nil.
func Wrap(service string, err error) error {
	if err == nil {
		return nil
	}
	var u *Unavailable
	if errors.As(err, &u) {
		return err
	}
	return &Unavailable{Service: service, Err: err}
}

// Disabled reports a collaborator that is not configured.
func Disabled(service string) error {
	return &Unavailable{Service: service}
}

// OrEmpty returns vals when err is nil, otherwise logs and returns an empty slice.
// The result is never nil.
func OrEmpty[T any](ctx context.Context, logger *slog.Logger, service string, vals []T, err error) []T {
	if err != nil {
		logDegraded(ctx, logger, service, err)
		return []T{}
	}
	if vals == nil {
		return []T{}
	}
	return vals
}

// OrZero returns (v, true) when err is nil, otherwise logs and returns the zero value and false.
func OrZero[T any](ctx context.Context, logger *slog.Logger, service string, v T, err error) (T, bool) {
	if err != nil {
		logDegraded(ctx, logger, service, err)
		var zero T
		return zero, false
	}
	return v, true
}

func logDegraded(ctx context.Context, logger *slog.Logger, service string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelWarn
	// disabled collaborators are expected, not worth a warning per request
	var u *Unavailable
	if errors.As(err, &u) && u.Err == nil {
		level = slog.LevelDebug
	}
	logger.Log(ctx, level, "upstream degraded to empty result", "service", service, "error", err)
}
