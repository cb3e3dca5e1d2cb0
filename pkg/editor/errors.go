package editor

import (
	"errors"
	"fmt"

	"github.com/dixieflatline76/Retouch/pkg/export"
	"github.com/dixieflatline76/Retouch/pkg/render"
)

var (
	// ErrInvalidInput is returned for rejected uploads and out-of-range edits.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOperationInProgress is returned when an enhancement is started while
	// another one is running.
	ErrOperationInProgress = errors.New("an enhancement is already running")
	// ErrOverlayNotFound is returned for an unknown overlay id.
	ErrOverlayNotFound = errors.New("overlay not found")
)

// ErrorKind classifies errors for callers that report them to users.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindRenderingUnavailable
	KindEncodingFailure
	KindBusy
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRenderingUnavailable:
		return "rendering_unavailable"
	case KindEncodingFailure:
		return "encoding_failure"
	case KindBusy:
		return "busy"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// KindOf maps err onto an ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, render.ErrOutOfRange),
		errors.Is(err, export.ErrUnknownFormat):
		return KindInvalidInput
	case errors.Is(err, ErrOverlayNotFound):
		return KindNotFound
	case errors.Is(err, ErrOperationInProgress):
		return KindBusy
	case errors.Is(err, render.ErrSourceNotLoaded),
		errors.Is(err, render.ErrRenderingUnavailable),
		errors.Is(err, render.ErrDimensionMismatch):
		return KindRenderingUnavailable
	case errors.Is(err, export.ErrEncodingFailure):
		return KindEncodingFailure
	default:
		return KindUnknown
	}
}

func invalid(err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
