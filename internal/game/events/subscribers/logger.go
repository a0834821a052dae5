package subscribers

import (
	"encoding/json"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/rs/zerolog"
)

// LoggerSubscriber logs events to structured logs
type LoggerSubscriber struct {
	id              string
	logger          zerolog.Logger
	logLevel        zerolog.Level
	eventTypeFilter map[string]bool // nil logs every type
	devMode         bool            // attach the full event as JSON
}

// NewLoggerSubscriber creates a new logger subscriber
func NewLoggerSubscriber(id string, logger zerolog.Logger, logLevel zerolog.Level) *LoggerSubscriber {
	return &LoggerSubscriber{
		id:       id,
		logger:   logger.With().Str("subscriber", "event_logger").Logger(),
		logLevel: logLevel,
	}
}

// ID returns the subscriber's unique identifier
func (ls *LoggerSubscriber) ID() string {
	return ls.id
}

// SetEventFilter sets which event types to log (nil means log all)
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.eventTypeFilter = nil
		return
	}

	ls.eventTypeFilter = make(map[string]bool)
	for _, eventType := range eventTypes {
		ls.eventTypeFilter[eventType] = true
	}
}

// SetDevMode enables or disables development mode logging
func (ls *LoggerSubscriber) SetDevMode(enabled bool) {
	ls.devMode = enabled
}

// InterestedIn returns true if the subscriber wants to receive this event type
func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	if ls.eventTypeFilter == nil {
		return true
	}
	return ls.eventTypeFilter[eventType]
}

// HandleEvent processes an event by logging it
func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	eventLogger := ls.logger.With().
		Str("event_type", event.Type()).
		Str("session_id", event.SessionID()).
		Time("timestamp", event.Timestamp()).
		Logger()

	level := ls.logLevel
	// contract violations are always worth an error line
	if _, ok := event.(*events.ContractViolationEvent); ok && level < zerolog.ErrorLevel {
		level = zerolog.ErrorLevel
	}
	logEvent := eventLogger.WithLevel(level)
	if event.TickNumber() >= 0 {
		logEvent.Int("tick", event.TickNumber())
	}

	switch e := event.(type) {
	case *events.TickDecidedEvent:
		logEvent.
			Str("module", e.Module).
			Str("action", e.Action).
			Float64("priority", e.Priority).
			Dur("decide_time", e.Duration).
			Float64("max_threat", e.MaxThreat)

	case *events.ModuleSwitchedEvent:
		logEvent.
			Str("from", e.From).
			Str("to", e.To).
			Float64("priority", e.Priority)

	case *events.PathNotFoundEvent:
		logEvent.
			Str("module", e.Module).
			Int("from_row", e.From.Row).
			Int("from_col", e.From.Col).
			Int("target_row", e.Target.Row).
			Int("target_col", e.Target.Col).
			Bool("exhausted", e.Exhausted)

	case *events.TargetForgottenEvent:
		logEvent.
			Str("module", e.Module).
			Int("target_row", e.Target.Row).
			Int("target_col", e.Target.Col).
			Int("until_tick", e.UntilTick)

	case *events.ContractViolationEvent:
		logEvent.Err(e.Err)

	case *events.SnapshotDroppedEvent:
		logEvent.Int("replacement_tick", e.Replacement)

	case *events.PhaseChangedEvent:
		logEvent.
			Str("from_phase", e.FromPhase).
			Str("to_phase", e.ToPhase).
			Str("reason", e.Reason)
	}

	if ls.devMode {
		if jsonData, err := json.Marshal(event); err == nil {
			logEvent.RawJSON("event_data", jsonData)
		}
	}

	logEvent.Msg("Agent event")
}
