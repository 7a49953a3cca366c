// Package source defines the history/quote provider contract used by the
// loader and the two concrete providers behind it.
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"pricemirror/internal/domain"
	"pricemirror/internal/util"
)

// Source is one external history and live-quote provider.
type Source interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// History returns the daily bars for [start, end) encoded as a cache
	// file in this provider's column layout.
	History(ctx context.Context, symbol domain.Symbol, start, end time.Time) ([]byte, error)
	// Quote returns live quote metadata for symbol.
	Quote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error)
}

// ---------------------------------------------------------------------------
// Failure taxonomy
// ---------------------------------------------------------------------------

// Kind classifies a provider failure.
type Kind int

const (
	KindNetwork Kind = iota
	KindMalformed
	KindUnknownSymbol
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	case KindUnknownSymbol:
		return "unknown-symbol"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrUnknownSymbol is matched by errors.Is for any FetchError of
// KindUnknownSymbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// FetchError is returned by every Source for a failed call.
type FetchError struct {
	Kind   Kind
	Source string
	Symbol domain.Symbol
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Source, e.Symbol, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnknownSymbol) hold for unknown-symbol failures
// even when the provider's own error does not wrap it.
func (e *FetchError) Is(target error) bool {
	return target == ErrUnknownSymbol && e.Kind == KindUnknownSymbol
}

// KindOf returns the Kind of err, or false if err is not a FetchError.
func KindOf(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func fail(kind Kind, src string, symbol domain.Symbol, err error) *FetchError {
	return &FetchError{Kind: kind, Source: src, Symbol: symbol, Err: err}
}

// classify maps an untyped provider error onto the taxonomy.
func classify(src string, symbol domain.Symbol, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fail(KindTimeout, src, symbol, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fail(KindTimeout, src, symbol, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no data found"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "delisted"),
		strings.Contains(msg, "invalid symbol"):
		return fail(KindUnknownSymbol, src, symbol, err)
	}
	return fail(KindNetwork, src, symbol, err)
}

// ---------------------------------------------------------------------------
// Call guard
// ---------------------------------------------------------------------------

// Guarded wraps a Source with an optional per-call timeout and the
// provider's rate limiter. A zero timeout and a nil limiter make it a
// pass-through.
type Guarded struct {
	inner   Source
	timeout time.Duration
	limiter *util.RateLimiter
}

var _ Source = (*Guarded)(nil)

// Guard wraps src. limiter may be nil.
func Guard(src Source, timeout time.Duration, limiter *util.RateLimiter) *Guarded {
	return &Guarded{inner: src, timeout: timeout, limiter: limiter}
}

func (g *Guarded) Name() string { return g.inner.Name() }

// Throttled reports how many calls had to wait on the rate limiter.
func (g *Guarded) Throttled() int { return g.limiter.Throttled() }

func (g *Guarded) History(ctx context.Context, symbol domain.Symbol, start, end time.Time) ([]byte, error) {
	ctx, cancel, err := g.enter(ctx, symbol)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return await(ctx, g.inner.Name(), symbol, func() ([]byte, error) {
		return g.inner.History(ctx, symbol, start, end)
	})
}

func (g *Guarded) Quote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	ctx, cancel, err := g.enter(ctx, symbol)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return await(ctx, g.inner.Name(), symbol, func() (domain.Quote, error) {
		return g.inner.Quote(ctx, symbol)
	})
}

func (g *Guarded) enter(ctx context.Context, symbol domain.Symbol) (context.Context, context.CancelFunc, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, nil, fail(KindTimeout, g.inner.Name(), symbol, err)
		}
	}
	if g.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, nil
}

// await runs fn on its own goroutine and returns early when ctx ends. The
// provider SDKs take no context, so an abandoned call finishes in the
// background and its result is dropped.
func await[T any](ctx context.Context, src string, symbol domain.Symbol, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fail(KindTimeout, src, symbol, ctx.Err())
	}
}
