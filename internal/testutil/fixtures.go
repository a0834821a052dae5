package testutil

import (
	"fmt"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

const (
	SelfID  = "self"
	EnemyID = "enemy"
)

// SnapshotBuilder assembles world snapshots from ASCII rows.
//
//	.  empty, visible        ?  empty, not visible
//	#  wall                  A  our tank
//	E  enemy tank            M  mine
//	b  bullet (facing Down)  L  laser (horizontal)
//	1..4  item by wire kind (laser, double bullet, radar, mine)
type SnapshotBuilder struct {
	rows     []string
	tick     int
	selfDir  core.Direction
	turret   core.Direction
	health   *int
	item     *core.ItemKind
	bullets  int
	reload   *int
	regen    *int
	zones    []core.Zone
	overlays map[core.Position]core.Occupant
	hidden   map[core.Position]bool
	shown    map[core.Position]bool
}

// NewSnapshot starts a builder for the given map rows. All rows must have
// equal length.
func NewSnapshot(rows ...string) *SnapshotBuilder {
	hp := 100
	return &SnapshotBuilder{
		rows:     rows,
		selfDir:  core.Up,
		turret:   core.Up,
		health:   &hp,
		bullets:  3,
		overlays: make(map[core.Position]core.Occupant),
		hidden:   make(map[core.Position]bool),
		shown:    make(map[core.Position]bool),
	}
}

func (b *SnapshotBuilder) Tick(t int) *SnapshotBuilder {
	b.tick = t
	return b
}

// Facing sets our hull and turret direction
func (b *SnapshotBuilder) Facing(hull, turret core.Direction) *SnapshotBuilder {
	b.selfDir = hull
	b.turret = turret
	return b
}

// Holding gives our tank a secondary item
func (b *SnapshotBuilder) Holding(kind core.ItemKind) *SnapshotBuilder {
	b.item = &kind
	return b
}

func (b *SnapshotBuilder) Ammo(n int) *SnapshotBuilder {
	b.bullets = n
	return b
}

// Reloading sets the ticks until our next bullet regenerates
func (b *SnapshotBuilder) Reloading(ticks int) *SnapshotBuilder {
	b.reload = &ticks
	return b
}

// Dead marks our tank as respawning
func (b *SnapshotBuilder) Dead(ticksToRegen int) *SnapshotBuilder {
	b.health = nil
	b.regen = &ticksToRegen
	return b
}

// WithZone adds a zone and tags its cells with the zone index
func (b *SnapshotBuilder) WithZone(z core.Zone) *SnapshotBuilder {
	b.zones = append(b.zones, z)
	return b
}

// Put places an occupant at p, replacing whatever the rows said
func (b *SnapshotBuilder) Put(p core.Position, occ core.Occupant) *SnapshotBuilder {
	b.overlays[p] = occ
	return b
}

// Hide marks p as outside the visible set
func (b *SnapshotBuilder) Hide(ps ...core.Position) *SnapshotBuilder {
	for _, p := range ps {
		b.hidden[p] = true
	}
	return b
}

// Show forces p into the visible set
func (b *SnapshotBuilder) Show(ps ...core.Position) *SnapshotBuilder {
	for _, p := range ps {
		b.shown[p] = true
	}
	return b
}

// Build produces the snapshot. It panics on ragged rows or unknown glyphs.
func (b *SnapshotBuilder) Build() *world.Snapshot {
	h := len(b.rows)
	if h == 0 {
		panic("testutil: no rows")
	}
	w := len(b.rows[0])

	s := &world.Snapshot{
		Tick:        b.tick,
		GameStateID: fmt.Sprintf("state-%d", b.tick),
		Width:       w,
		Height:      h,
		Cells:       make([]core.Cell, w*h),
		Zones:       b.zones,
		SelfID:      SelfID,
	}

	self := core.Player{ID: SelfID, Nickname: SelfID, TicksToRegen: b.regen}
	s.Players = []core.Player{self, {ID: EnemyID, Nickname: EnemyID}}

	for r, row := range b.rows {
		if len(row) != w {
			panic(fmt.Sprintf("testutil: row %d has length %d, want %d", r, len(row), w))
		}
		for c, ch := range row {
			p := core.NewPosition(r, c)
			cell := &s.Cells[p.ToIndex(w)]
			cell.Visible = ch != '?'
			cell.Occupant = b.glyph(ch, p, s, self)
		}
	}

	for p, occ := range b.overlays {
		s.Cells[p.ToIndex(w)].Occupant = occ
	}
	for p := range b.hidden {
		s.Cells[p.ToIndex(w)].Visible = false
	}
	for p := range b.shown {
		s.Cells[p.ToIndex(w)].Visible = true
	}
	for _, z := range b.zones {
		idx := z.Index
		for _, p := range z.Cells() {
			if p.IsValid(w, h) {
				s.Cells[p.ToIndex(w)].Zone = &idx
			}
		}
	}

	return s
}

func (b *SnapshotBuilder) glyph(ch rune, p core.Position, s *world.Snapshot, self core.Player) core.Occupant {
	switch ch {
	case '.', '?':
		return core.EmptyOccupant()
	case '#':
		return core.WallOccupant()
	case 'A':
		ammo := b.bullets
		info := core.TankInfo{
			OwnerID:         SelfID,
			Direction:       b.selfDir,
			TurretDirection: b.turret,
			Health:          b.health,
			SecondaryItem:   b.item,
			BulletCount:     &ammo,
			TicksToReload:   b.reload,
		}
		if b.health != nil {
			s.Agent = &core.Agent{
				ID:              SelfID,
				Position:        p,
				Direction:       b.selfDir,
				TurretDirection: b.turret,
				Health:          b.health,
				SecondaryItem:   b.item,
				BulletCount:     b.bullets,
				TicksToReload:   b.reload,
				Player:          self,
			}
		}
		return core.NewTank(info, true)
	case 'E':
		hp := 100
		return core.NewTank(core.TankInfo{
			OwnerID:         EnemyID,
			Direction:       core.Down,
			TurretDirection: core.Down,
			Health:          &hp,
		}, false)
	case 'M':
		return core.NewMine(1, nil)
	case 'b':
		return core.NewBullet(1, core.Down, 2, false)
	case 'L':
		return core.NewLaser(1, core.Horizontal)
	case '1', '2', '3', '4':
		return core.NewItem(core.ItemKind(ch - '0'))
	default:
		panic(fmt.Sprintf("testutil: unknown glyph %q at %s", ch, p))
	}
}

// Enemy returns an enemy tank occupant with the given hull and turret facing
func Enemy(hull, turret core.Direction) core.Occupant {
	hp := 100
	return core.NewTank(core.TankInfo{
		OwnerID:         EnemyID,
		Direction:       hull,
		TurretDirection: turret,
		Health:          &hp,
	}, false)
}

// CapturedBy returns a captured zone status owned by id
func CapturedBy(id string) core.ZoneStatus {
	return core.ZoneStatus{Kind: core.ZoneCaptured, PlayerID: &id}
}

// BeingCapturedBy returns an in-progress capture by id
func BeingCapturedBy(id string, remainingTicks int) core.ZoneStatus {
	return core.ZoneStatus{Kind: core.ZoneBeingCaptured, PlayerID: &id, RemainingTicks: &remainingTicks}
}
