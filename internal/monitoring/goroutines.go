package monitoring

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GoroutineMonitor samples the goroutine count and warns when it grows past
// a threshold. Decisions that miss their deadline keep running in the
// background, so a steady climb points at a decider that never returns.
type GoroutineMonitor struct {
	mu             sync.RWMutex
	baseline       int
	current        int
	peak           int
	checkInterval  time.Duration
	alertThreshold int
	lastAlert      time.Time
	alertCooldown  time.Duration
	stopChan       chan struct{}
	stopOnce       sync.Once
	logger         zerolog.Logger

	count func() int
	now   func() time.Time
}

// NewGoroutineMonitor creates a new goroutine monitor
func NewGoroutineMonitor(checkInterval time.Duration, alertThreshold int, logger zerolog.Logger) *GoroutineMonitor {
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	if alertThreshold <= 0 {
		alertThreshold = 200
	}
	baseline := runtime.NumGoroutine()
	return &GoroutineMonitor{
		baseline:       baseline,
		current:        baseline,
		peak:           baseline,
		checkInterval:  checkInterval,
		alertThreshold: alertThreshold,
		alertCooldown:  5 * time.Minute,
		stopChan:       make(chan struct{}),
		logger:         logger.With().Str("component", "GoroutineMonitor").Logger(),
		count:          runtime.NumGoroutine,
		now:            time.Now,
	}
}

// Start begins monitoring goroutines
func (gm *GoroutineMonitor) Start() {
	go gm.monitor()
	gm.logger.Info().
		Int("baseline", gm.baseline).
		Dur("interval", gm.checkInterval).
		Msg("Started goroutine monitoring")
}

// Stop stops the monitor; it is safe to call more than once
func (gm *GoroutineMonitor) Stop() {
	gm.stopOnce.Do(func() { close(gm.stopChan) })
}

func (gm *GoroutineMonitor) monitor() {
	ticker := time.NewTicker(gm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.check()
		case <-gm.stopChan:
			return
		}
	}
}

// check samples the count and reports whether an alert was raised
func (gm *GoroutineMonitor) check() bool {
	current := gm.count()
	now := gm.now()

	gm.mu.Lock()
	gm.current = current
	if current > gm.peak {
		gm.peak = current
	}
	peak := gm.peak
	growth := current - gm.baseline
	shouldAlert := current > gm.alertThreshold &&
		(gm.lastAlert.IsZero() || now.Sub(gm.lastAlert) > gm.alertCooldown)
	if shouldAlert {
		gm.lastAlert = now
	}
	gm.mu.Unlock()

	gm.logger.Debug().
		Int("current", current).
		Int("baseline", gm.baseline).
		Int("peak", peak).
		Int("growth", growth).
		Msg("Goroutine metrics")

	if shouldAlert {
		gm.logger.Warn().
			Int("current", current).
			Int("threshold", gm.alertThreshold).
			Int("growth", growth).
			Msg("High goroutine count detected - possible stuck decisions")
	}
	return shouldAlert
}

// GetMetrics returns current goroutine metrics
func (gm *GoroutineMonitor) GetMetrics() GoroutineMetrics {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	return GoroutineMetrics{
		Current:  gm.current,
		Baseline: gm.baseline,
		Peak:     gm.peak,
		Growth:   gm.current - gm.baseline,
	}
}

// GoroutineMetrics contains goroutine statistics
type GoroutineMetrics struct {
	Current  int `json:"current"`
	Baseline int `json:"baseline"`
	Peak     int `json:"peak"`
	Growth   int `json:"growth"`
}
