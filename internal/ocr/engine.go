package ocr

import (
	"context"
	"image"
	"time"

	"delivery-audit/internal/faults"
	"delivery-audit/internal/logger"
)

type Capability int

const (
	CapabilityUnavailable Capability = iota
	CapabilityFull
	CapabilityReduced
)

func (c Capability) String() string {
	switch c {
	case CapabilityFull:
		return "full"
	case CapabilityReduced:
		return "reduced"
	default:
		return "unavailable"
	}
}

// Session is the outcome of engine bootstrap. Engine is nil exactly when
// Capability is CapabilityUnavailable, in which case Fault says why.
type Session struct {
	Capability Capability
	Engine     OCREngine
	Languages  []string
	Fault      *faults.BootstrapFault
}

// Negotiate tries the preferred languages first and the reduced set once if
// that fails. It does not return an error: the caller branches on the tag.
func Negotiate(ctx context.Context, engineName string, factory Factory, preferred, reduced []string) Session {
	fault := &faults.BootstrapFault{Engine: engineName}

	logger.DebugLog("[negotiate]: trying %s with %v", engineName, preferred)
	e, err := factory(ctx, preferred)
	if err == nil {
		return Session{Capability: CapabilityFull, Engine: e, Languages: preferred}
	}
	fault.Attempts = append(fault.Attempts, faults.Attempt{Languages: preferred, Err: err})
	logger.Warn("preferred OCR languages failed, trying reduced set", "engine", engineName, "languages", preferred, "error", err)

	if len(reduced) == 0 || equalLanguages(preferred, reduced) {
		return Session{Capability: CapabilityUnavailable, Fault: fault}
	}

	e, err = factory(ctx, reduced)
	if err == nil {
		return Session{Capability: CapabilityReduced, Engine: e, Languages: reduced}
	}
	fault.Attempts = append(fault.Attempts, faults.Attempt{Languages: reduced, Err: err})
	return Session{Capability: CapabilityUnavailable, Fault: fault}
}

func equalLanguages(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// WithTimeout bounds every call on e by d. A zero d returns e unchanged.
//
// Engines backed by cgo cannot be interrupted, so a call that times out keeps
// running in its goroutine until the engine returns.
func WithTimeout(e OCREngine, d time.Duration) OCREngine {
	if d <= 0 {
		return e
	}
	return &timeoutEngine{inner: e, timeout: d}
}

type timeoutEngine struct {
	inner   OCREngine
	timeout time.Duration
}

func (t *timeoutEngine) Name() string { return t.inner.Name() }

func (t *timeoutEngine) Close() error { return t.inner.Close() }

func (t *timeoutEngine) DetectText(ctx context.Context, img image.Image) ([]Token, error) {
	return callWithTimeout(ctx, t.timeout, func(ctx context.Context) ([]Token, error) {
		return t.inner.DetectText(ctx, img)
	})
}

func (t *timeoutEngine) Recognize(ctx context.Context, img image.Image, allowlist string) ([]string, error) {
	return callWithTimeout(ctx, t.timeout, func(ctx context.Context) ([]string, error) {
		return t.inner.Recognize(ctx, img, allowlist)
	})
}

type callResult[T any] struct {
	value T
	err   error
}

func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- callResult[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
