package pipeline

const (
	// EventBufferSize bounds the analysis event channel. Slow consumers skip
	// events rather than stall the analysis loop.
	EventBufferSize = 16

	// DefaultAnalysisRate is used when the configured rate is not positive,
	// in analyses per second.
	DefaultAnalysisRate = 1.0

	// DefaultWindowSeconds is the sliding window analyzed on each tick when
	// the configured window is not positive.
	DefaultWindowSeconds = 30.0

	// DefaultSessionTTLSeconds is how long an idle session survives without
	// a new sample when the configured TTL is not positive.
	DefaultSessionTTLSeconds = 600.0
)
