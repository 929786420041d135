package viewer

import (
	"errors"
	"fmt"
)

var (
	// ErrStale marks a load or render result that was superseded before it
	// completed. Such results are dropped without any visible effect.
	ErrStale = errors.New("viewer: result superseded")

	ErrInvalidRotation = errors.New("viewer: rotation must be a multiple of 90")
	ErrNoDocument      = errors.New("viewer: no document loaded")
	ErrPageRange       = errors.New("viewer: page out of range")
)

// LoadError reports that a source could not be fetched or decoded.
type LoadError struct {
	Src string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Src, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports a failed page fetch or rasterisation. The viewer stays
// usable and the next state change retries.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
