package translator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies generation failures so callers can tell a busy service
// from a broken request.
type Kind int

const (
	// KindPermanent failures will not succeed if repeated unchanged.
	KindPermanent Kind = iota
	// KindTransient failures (network errors, rate limits, 5xx) may succeed later.
	KindTransient
	// KindOverloaded means the service is temporarily at capacity.
	KindOverloaded
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindOverloaded:
		return "overloaded"
	default:
		return "permanent"
	}
}

// GenerationError is returned by every provider in this package.
type GenerationError struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newError(provider string, kind Kind, err error) error {
	return &GenerationError{Provider: provider, Kind: kind, Err: err}
}

// statusError classifies a non-200 response. The message keeps the
// "Error code: NNN - body" shape so text-based matching still works on it.
func statusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	err := &GenerationError{
		Provider:   provider,
		StatusCode: status,
		Err:        fmt.Errorf("Error code: %d - %s", status, msg),
	}
	switch {
	case status == 529 || strings.Contains(strings.ToLower(msg), "overloaded_error"):
		err.Kind = KindOverloaded
	case status == http.StatusTooManyRequests || status >= 500:
		err.Kind = KindTransient
	default:
		err.Kind = KindPermanent
	}
	return err
}

// KindOf reports the kind of err. A message containing "overloaded_error"
// (any case) or "error code: 529" means overload whatever the structured
// kind says. Otherwise a *GenerationError keeps its Kind and any other error
// is permanent.
func KindOf(err error) Kind {
	if err == nil {
		return KindPermanent
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "overloaded_error") || strings.Contains(msg, "error code: 529") {
		return KindOverloaded
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindPermanent
}

// IsOverloaded reports whether err means the service is at capacity.
func IsOverloaded(err error) bool {
	return err != nil && KindOf(err) == KindOverloaded
}

// IsTransient reports whether err may succeed if tried again later.
func IsTransient(err error) bool {
	k := KindOf(err)
	return err != nil && (k == KindTransient || k == KindOverloaded)
}
