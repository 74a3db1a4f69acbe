package otelx

import "context"

// TracePropagator stores the trace context of ctx so it can travel with an async message.
type TracePropagator interface {
	Propagate(ctx context.Context)
}

// TraceExtractor rebuilds the context stored by a TracePropagator.
type TraceExtractor interface {
	Extract() context.Context
}

type TracePropagatorExtractor interface {
	TracePropagator
	TraceExtractor
}

func ContextFromExtractor(extractor TraceExtractor) context.Context {
	if extractor == nil {
		return context.Background()
	}
	return extractor.Extract()
}
