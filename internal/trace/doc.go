// Package trace records what the link pipeline is doing, span by span.
//
// # Usage
//
//	rlink link --trace=- --trace-level=detail
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelPhase: driver and per-output boundaries
//   - LevelDetail: individual steps (archive edits, subprocesses)
//   - LevelDebug: everything, including per-member archive events
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.Start(ctx, trace.ScopeOutput, "staticlib")
//	defer span.End("")
package trace
