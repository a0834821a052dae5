package behavior

import (
	"errors"
	"fmt"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
)

// ErrInvalidWeights is returned when a weight set is out of range
var ErrInvalidWeights = errors.New("invalid behavior weights")

// Weights shapes module priorities. It is swapped as a whole between ticks
// when the configuration is reloaded.
type Weights struct {
	Fight       float64
	CaptureZone float64
	LayMine     float64
	Wander      float64

	// Scan priority is max(0, 1 - count/saturation) * ScanBase + ScanFloor,
	// plus ScanQuietBonus once the threat field has been still for a while
	ScanBase       float64
	ScanFloor      float64
	ScanQuietBonus float64

	Items map[core.ItemKind]float64
	// ItemRecencyTicks is the staleness at which a remembered item stops
	// being attractive
	ItemRecencyTicks int
}

// DefaultWeights returns the stock tuning
func DefaultWeights() Weights {
	return Weights{
		Fight:          1.0,
		CaptureZone:    0.65,
		LayMine:        0.2,
		Wander:         0.1,
		ScanBase:       0.1,
		ScanFloor:      0.01,
		ScanQuietBonus: 0.05,
		Items: map[core.ItemKind]float64{
			core.ItemLaser:        0.4,
			core.ItemDoubleBullet: 0.6,
			core.ItemRadar:        0.7,
			core.ItemMine:         0.3,
		},
		ItemRecencyTicks: 100,
	}
}

// Item returns the attractiveness of an item kind, zero when unknown
func (w Weights) Item(kind core.ItemKind) float64 {
	return w.Items[kind]
}

// Clone returns a deep copy
func (w Weights) Clone() Weights {
	c := w
	c.Items = make(map[core.ItemKind]float64, len(w.Items))
	for k, v := range w.Items {
		c.Items[k] = v
	}
	return c
}

// Validate checks that every weight lies in [0, 1]
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"fight", w.Fight},
		{"capture_zone", w.CaptureZone},
		{"lay_mine", w.LayMine},
		{"wander", w.Wander},
		{"scan_base", w.ScanBase},
		{"scan_floor", w.ScanFloor},
		{"scan_quiet_bonus", w.ScanQuietBonus},
	}
	for _, n := range named {
		if !inUnit(n.value) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, n.name, n.value)
		}
	}
	if w.ScanBase+w.ScanFloor+w.ScanQuietBonus > 1 {
		return fmt.Errorf("%w: scan weights sum above 1", ErrInvalidWeights)
	}
	for kind, v := range w.Items {
		if !inUnit(v) {
			return fmt.Errorf("%w: item %s=%v", ErrInvalidWeights, kind, v)
		}
	}
	if w.ItemRecencyTicks <= 0 {
		return fmt.Errorf("%w: item_recency_ticks must be positive", ErrInvalidWeights)
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// distanceFactor decays item attractiveness with Manhattan distance
func distanceFactor(d int) float64 {
	switch {
	case d <= 1:
		return 1
	case d <= 2:
		return 0.8
	case d <= 3:
		return 0.7
	case d <= 4:
		return 0.5
	default:
		return 0.3
	}
}
