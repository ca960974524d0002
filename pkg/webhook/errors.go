package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrTimeout marks a request that exceeded the configured timeout.
	ErrTimeout = errors.New("webhook request timed out")
	// ErrNetwork marks a transport failure before any response arrived.
	ErrNetwork = errors.New("webhook network error")
	// ErrInvalidResponse marks a 2xx response without the expected fields.
	ErrInvalidResponse = errors.New("invalid response format")
	// ErrNoEndpoint is returned when the target endpoint is not configured.
	ErrNoEndpoint = errors.New("webhook endpoint not configured")

	ErrContentRequired = errors.New("article content is required")
	ErrContentTooShort = errors.New("article content is too short to summarize")
	ErrMessageRequired = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message is too long (max 500 characters)")
)

// StatusError is a non-2xx webhook response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// classify wraps a transport error as ErrTimeout or ErrNetwork.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// UserMessage maps an error from this package to text fit for end users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrTimeout):
		return "The request took too long. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your connection and try again."
	case errors.Is(err, ErrNoEndpoint):
		return "The AI service endpoint is not configured."
	case errors.As(err, &statusErr):
		switch {
		case statusErr.Code == 404:
			return "AI service not found. Please contact support."
		case statusErr.Code == 429:
			return "Too many requests. Please wait a moment and try again."
		case statusErr.Code >= 500:
			return "AI service is temporarily unavailable. Please try again later."
		}
	case errors.Is(err, ErrContentRequired), errors.Is(err, ErrContentTooShort),
		errors.Is(err, ErrMessageRequired), errors.Is(err, ErrMessageTooLong):
		return capitalize(err.Error()) + "."
	}
	return "An unexpected error occurred. Please try again."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
