package commonerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput occurs when ingested data is not an image.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownFilter occurs when a filter name is not registered.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrNotLoaded occurs when a session operation needs a loaded image.
	ErrNotLoaded = errors.New("no image loaded")

	// ErrNoActiveParametricFilter occurs when a parametric adjustment is
	// requested but the last applied filter was not parametric.
	ErrNoActiveParametricFilter = errors.New("no active parametric filter")

	// ErrTransformEngine occurs when the transform engine fails.
	ErrTransformEngine = errors.New("transform engine failure")

	// ErrStore occurs when the persistent store backend fails.
	ErrStore = errors.New("store failure")

	// ErrNotFound occurs when a saved image could not be found.
	ErrNotFound = errors.New("the resource cannot be found")

	// ErrSuperseded is returned by a filter operation whose result was
	// discarded because a new image was loaded while it was pending.
	ErrSuperseded = errors.New("operation superseded by load")
)

type InvalidInputError struct {
	MIME string
	Size int
}

func (e *InvalidInputError) Error() string {
	if e.Size == 0 {
		return fmt.Sprintf("invalid input: empty image data (mime %q)", e.MIME)
	}
	return fmt.Sprintf("invalid input: %q is not an image type", e.MIME)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q", e.Name)
}

func (e *UnknownFilterError) Is(target error) bool { return target == ErrUnknownFilter }

type NotLoadedError struct {
	Op string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("%s: no image loaded", e.Op)
}

func (e *NotLoadedError) Is(target error) bool { return target == ErrNotLoaded }

type NoActiveParametricFilterError struct {
	Value float64
}

func (e *NoActiveParametricFilterError) Error() string {
	return fmt.Sprintf("adjust to %g: no active parametric filter", e.Value)
}

func (e *NoActiveParametricFilterError) Is(target error) bool {
	return target == ErrNoActiveParametricFilter
}

// TransformEngineError wraps a failure raised by the transform engine.
type TransformEngineError struct {
	Filter string
	Param  float64
	Err    error
}

func (e *TransformEngineError) Error() string {
	return fmt.Sprintf("filter %s (param %g): %v", e.Filter, e.Param, e.Err)
}

func (e *TransformEngineError) Is(target error) bool { return target == ErrTransformEngine }

func (e *TransformEngineError) Unwrap() error { return e.Err }

// StoreError wraps a backend failure. ID is zero for operations that are
// not about a single record.
type StoreError struct {
	Op  string
	ID  int64
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("store %s %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func (e *StoreError) Unwrap() error { return e.Err }

type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("saved image %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type SupersededError struct {
	Op     string
	Filter string
}

func (e *SupersededError) Error() string {
	if e.Filter == "" {
		return fmt.Sprintf("%s: superseded by load", e.Op)
	}
	return fmt.Sprintf("%s %s: superseded by load", e.Op, e.Filter)
}

func (e *SupersededError) Is(target error) bool { return target == ErrSuperseded }
