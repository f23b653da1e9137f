package trace

import "context"

type ctxKey struct{}

// carrier is what a link context holds: the tracer and the innermost open
// span, so nested steps attach to their output.
type carrier struct {
	tracer Tracer
	span   uint64
}

func load(ctx context.Context) carrier {
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(carrier); ok {
			return c
		}
	}
	return carrier{tracer: Nop}
}

// FromContext returns the tracer carried by ctx, Nop if there is none.
func FromContext(ctx context.Context) Tracer {
	return load(ctx).tracer
}

// WithTracer attaches t and resets the current span.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, carrier{tracer: t})
}

// CurrentSpan returns the ID of the innermost span started through ctx,
// 0 at the root.
func CurrentSpan(ctx context.Context) uint64 {
	return load(ctx).span
}

func withSpan(ctx context.Context, id uint64) context.Context {
	c := load(ctx)
	c.span = id
	return context.WithValue(ctx, ctxKey{}, c)
}
