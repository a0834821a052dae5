package trace

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
)

// Entry is one line of a decision trace
type Entry struct {
	Time       time.Time          `json:"time"`
	Session    string             `json:"session"`
	Tick       int                `json:"tick"`
	Module     string             `json:"module"`
	Action     string             `json:"action"`
	Priority   float64            `json:"priority"`
	Priorities map[string]float64 `json:"priorities,omitempty"`
	PathLength int                `json:"path_length"`
	Replans    int                `json:"replans"`
	DurationUS int64              `json:"duration_us"`
	MaxThreat  float64            `json:"max_threat"`
}

// Recorder writes every decided tick to a compressed JSONL trace. It is an
// event bus subscriber for TickDecided events.
type Recorder struct {
	w      *JSONLZstdWriter
	logger zerolog.Logger

	written atomic.Int64
	failed  atomic.Int64
}

// NewRecorder writes to <dir>/trace-<session>-<hour>.jsonl.zst
func NewRecorder(dir, sessionID string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		w:      NewJSONLZstdWriter(dir, "trace-"+sessionID),
		logger: logger.With().Str("component", "TraceRecorder").Logger(),
	}
}

func (r *Recorder) ID() string { return "trace_recorder" }

func (r *Recorder) InterestedIn(eventType string) bool {
	return eventType == events.TypeTickDecided
}

// HandleEvent records a TickDecided event. Write failures are logged and
// never reach the decision loop.
func (r *Recorder) HandleEvent(event events.Event) {
	e, ok := event.(*events.TickDecidedEvent)
	if !ok {
		return
	}
	if err := r.Record(EntryFrom(e)); err != nil {
		failed := r.failed.Add(1)
		r.logger.Error().Err(err).Int("tick", e.TickNumber()).Int64("failed", failed).Msg("Failed to write trace entry")
		return
	}
	r.written.Add(1)
}

// EntryFrom converts a TickDecided event to a trace line
func EntryFrom(e *events.TickDecidedEvent) Entry {
	return Entry{
		Time:       e.Timestamp(),
		Session:    e.SessionID(),
		Tick:       e.TickNumber(),
		Module:     e.Module,
		Action:     e.Action,
		Priority:   e.Priority,
		Priorities: e.Priorities,
		PathLength: e.PathLength,
		Replans:    e.Replans,
		DurationUS: e.Duration.Microseconds(),
		MaxThreat:  e.MaxThreat,
	}
}

func (r *Recorder) Record(entry Entry) error {
	return r.w.Write(entry)
}

func (r *Recorder) Flush() error {
	if err := r.w.Flush(); err != nil {
		return err
	}
	r.logger.Debug().Int64("written", r.written.Load()).Str("path", r.w.Path()).Msg("Trace flushed")
	return nil
}

func (r *Recorder) Close() error {
	r.logger.Info().Int64("written", r.written.Load()).Int64("failed", r.failed.Load()).Msg("Closing trace")
	return r.w.Close()
}

// Written counts entries recorded so far
func (r *Recorder) Written() int64 { return r.written.Load() }
