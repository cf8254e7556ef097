package gmail

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

var (
	// ErrNotFound is returned when a message does not exist
	ErrNotFound = errors.New("gmail: not found")
	// ErrRateLimited is returned when the API rejects a call for quota reasons
	ErrRateLimited = errors.New("gmail: rate limited")
	// ErrCircuitOpen is returned while the circuit breaker rejects calls
	ErrCircuitOpen = errors.New("gmail: circuit open")
)

// nonCircuitError wraps client errors that should not trip the breaker
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func (e *nonCircuitError) Unwrap() error {
	return e.err
}

// execute runs an API call through the circuit breaker and maps its error
func (s *Source) execute(operation string, fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	if err != nil {
		s.logger.Debug("Gmail call failed",
			zap.String("operation", operation),
			zap.String("breaker_state", s.cb.State().String()),
			zap.Error(err))
	}
	return mapError(err)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		err = nce.err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return err
}
