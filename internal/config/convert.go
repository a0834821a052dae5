package config

import (
	"strings"
	"time"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/behavior"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/monitoring"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/transport"
)

func itemKind(name string) (core.ItemKind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := core.ItemLaser; k <= core.ItemMine; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Weights returns the behavior weights. Unknown item names are skipped;
// Validate reports them.
func (c *Config) Weights() behavior.Weights {
	b := c.Behavior
	w := behavior.Weights{
		Fight:            b.Fight,
		CaptureZone:      b.CaptureZone,
		LayMine:          b.LayMine,
		Wander:           b.Wander,
		ScanBase:         b.ScanBase,
		ScanFloor:        b.ScanFloor,
		ScanQuietBonus:   b.ScanQuietBonus,
		Items:            make(map[core.ItemKind]float64, len(b.Items)),
		ItemRecencyTicks: b.ItemRecencyTicks,
	}
	for name, weight := range b.Items {
		if kind, ok := itemKind(name); ok {
			w.Items[kind] = weight
		}
	}
	return w
}

// BehaviorOptions returns the arbiter tuning
func (c *Config) BehaviorOptions() behavior.Options {
	opts := behavior.DefaultOptions()
	opts.Ladder = append([]float64(nil), c.Agent.DangerLadder...)
	opts.FailuresPerStep = c.Agent.FailuresPerStep
	opts.AllowBackward = c.Agent.AllowBackward
	opts.ForgetTicks = c.Agent.ForgetTicks
	opts.WanderRadius = c.Agent.WanderRadius
	opts.FightThreshold = c.Agent.FightThreshold
	opts.Seed = c.Agent.Seed
	return opts
}

// TransportOptions returns the client options for one session
func (c *Config) TransportOptions(sessionID string) transport.Options {
	return transport.Options{
		Host:               c.Server.Host,
		Port:               c.Server.Port,
		Nickname:           c.Server.Nickname,
		JoinCode:           c.Server.JoinCode,
		DecisionTimeout:    time.Duration(c.Agent.DecisionTimeoutMs) * time.Millisecond,
		WriteTimeout:       time.Duration(c.Transport.WriteTimeoutMs) * time.Millisecond,
		ReconnectPerSecond: c.Transport.ReconnectRate,
		ReconnectBurst:     c.Transport.ReconnectBurst,
		MaxReconnects:      c.Transport.MaxAttempts,
		ValidateSchema:     c.Transport.ValidateSchema,
		SessionID:          sessionID,
	}
}

// HandshakeTimeout bounds the websocket handshake
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Transport.HandshakeMs) * time.Millisecond
}

// HealthOptions returns the health endpoint options
func (c *Config) HealthOptions() monitoring.HealthOptions {
	return monitoring.HealthOptions{
		Host:             c.Health.Host,
		Port:             c.Health.Port,
		EnableReflection: c.Health.EnableReflection,
		GracePeriod:      time.Duration(c.Health.GracefulShutdownDelayMs) * time.Millisecond,
	}
}

// GoroutineCheckInterval is how often the goroutine monitor samples
func (c *Config) GoroutineCheckInterval() time.Duration {
	return time.Duration(c.Health.GoroutineCheckSeconds) * time.Second
}
