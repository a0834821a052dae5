package threat

import (
	"strings"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/common"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

const (
	BulletDecay = 0.9
	LaserDecay  = 1.0
	TankDecay   = 0.7
)

// Field is a danger score in [0,1] for every cell of the grid
type Field struct {
	W, H   int
	values []float64
}

// NewField returns an all-zero field
func NewField(w, h int) Field {
	return Field{W: w, H: h, values: make([]float64, w*h)}
}

// At returns the danger at p. Cells off the grid are fully dangerous.
func (f Field) At(p core.Position) float64 {
	if !p.IsValid(f.W, f.H) {
		return 1
	}
	return f.values[p.ToIndex(f.W)]
}

// Equal reports whether both fields have the same shape and values
func (f Field) Equal(other Field) bool {
	if f.W != other.W || f.H != other.H || len(f.values) != len(other.values) {
		return false
	}
	for i := range f.values {
		if f.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// Max returns the highest danger anywhere on the field
func (f Field) Max() float64 {
	m := 0.0
	for _, v := range f.values {
		if v > m {
			m = v
		}
	}
	return m
}

// String renders the field with one glyph per cell, for debug logs
func (f Field) String() string {
	levels := []rune{' ', '░', '▒', '▓', '█'}
	var sb strings.Builder
	for r := 0; r < f.H; r++ {
		for c := 0; c < f.W; c++ {
			v := f.values[r*f.W+c]
			sb.WriteRune(levels[int(v*float64(len(levels)-1))])
		}
		if r < f.H-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (f Field) set(p core.Position, v float64) {
	f.values[p.ToIndex(f.W)] = v
}

func (f Field) combine(p core.Position, v float64) {
	i := p.ToIndex(f.W)
	f.values[i] = common.ProbOr(f.values[i], v)
}

// Compute rebuilds the danger field from the remembered hazards in the model.
// It has no history: calling it twice on the same model yields equal fields.
func Compute(m *world.Model) Field {
	f := NewField(m.Width(), m.Height())
	if !m.Initialized() {
		return f
	}

	for _, e := range m.Hazards() {
		occ := e.Occupant
		switch occ.Kind {
		case core.OccupantMine:
			f.set(e.Position, 1)
		case core.OccupantBullet, core.OccupantDoubleBullet:
			f.propagate(m, e.Position, occ.Bullet.Direction, BulletDecay)
		case core.OccupantLaser:
			for _, d := range occ.Laser.Orientation.Directions() {
				f.propagate(m, e.Position, d, LaserDecay)
			}
			f.set(e.Position, 1)
		case core.OccupantEnemyTank:
			f.propagate(m, e.Position, occ.Tank.TurretDirection, TankDecay)
		}
	}

	return f
}

// propagate combines a decaying danger value into every cell of the
// sightline from origin along d
func (f Field) propagate(m *world.Model, origin core.Position, d core.Direction, decay float64) {
	value := 1.0
	for _, p := range m.Sightline(origin, d) {
		f.combine(p, value)
		value *= decay
	}
}
