package engine

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/voiceclock/voiceclock/engine"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)

	sessionsStarted, _ = meter.Int64Counter("voiceclock.sessions.started",
		metric.WithDescription("Playback sessions that began preparing"))
	sessionsCompleted, _ = meter.Int64Counter("voiceclock.sessions.completed",
		metric.WithDescription("Playback sessions that played to the end"))
	sessionsFailed, _ = meter.Int64Counter("voiceclock.sessions.failed",
		metric.WithDescription("Playback sessions that ended with an error"))
)
