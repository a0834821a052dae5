package world

import (
	"math"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/rs/zerolog"
)

const (
	// Unseen is the staleness of a cell that was never observed
	Unseen = math.MaxInt32
	// MaxStaleness is where the staleness of an observed cell stops growing
	MaxStaleness = Unseen - 1
)

// Entity is a remembered occupant with the age of the observation
type Entity struct {
	Position  core.Position
	Occupant  core.Occupant
	Staleness int
}

// Model is the agent's persistent memory of the map. It is mutated in place
// once per tick and is not safe for concurrent use.
type Model struct {
	grid      *core.Grid
	staleness []int
	zones     []core.Zone
	players   []core.Player
	agent     *core.Agent
	selfID    string
	tick      int
	stateID   string

	// staging buffers, swapped with grid/staleness on commit
	nextCells []core.Cell
	nextStale []int

	logger zerolog.Logger
}

// NewModel creates an empty model. It holds no grid until the first Update.
func NewModel(logger zerolog.Logger) *Model {
	return &Model{
		logger: logger.With().Str("component", "WorldModel").Logger(),
	}
}

// Update merges a snapshot into the model. On error the model is unchanged.
func (m *Model) Update(s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if m.grid == nil || m.grid.W != s.Width || m.grid.H != s.Height {
		if m.grid != nil {
			m.logger.Info().
				Int("old_width", m.grid.W).
				Int("old_height", m.grid.H).
				Int("width", s.Width).
				Int("height", s.Height).
				Msg("Grid dimensions changed, resetting world model")
		}
		if err := m.initialize(s); err != nil {
			return err
		}
	} else {
		m.merge(s)
	}

	m.zones = append(m.zones[:0], s.Zones...)
	m.players = append(m.players[:0], s.Players...)
	m.agent = s.Agent
	m.selfID = s.SelfID
	m.tick = s.Tick
	m.stateID = s.GameStateID

	return nil
}

func (m *Model) initialize(s *Snapshot) error {
	grid, err := core.NewGrid(s.Width, s.Height)
	if err != nil {
		return err
	}
	n := len(grid.Cells)
	m.grid = grid
	m.staleness = make([]int, n)
	m.nextCells = make([]core.Cell, n)
	m.nextStale = make([]int, n)

	for i, c := range s.Cells {
		m.grid.Cells[i] = c
		if c.Visible || !c.Occupant.IsEmpty() {
			m.staleness[i] = 0
		} else {
			m.staleness[i] = Unseen
		}
	}
	return nil
}

// merge stages the new state into the scratch buffers and swaps them in
func (m *Model) merge(s *Snapshot) {
	for i := range s.Cells {
		obs := &s.Cells[i]
		prev := m.grid.Cells[i]
		stale := ageStaleness(m.staleness[i])

		next := prev
		next.Visible = obs.Visible
		if obs.Zone != nil {
			next.Zone = obs.Zone
		}

		switch {
		case obs.Visible:
			next.Occupant = obs.Occupant
			stale = 0
		case !obs.Occupant.IsEmpty():
			next.Occupant = obs.Occupant
			stale = 0
		case prev.Occupant.Kind.IsTransient():
			next.Occupant = core.EmptyOccupant()
		}

		m.nextCells[i] = next
		m.nextStale[i] = stale
	}

	m.grid.Cells, m.nextCells = m.nextCells, m.grid.Cells
	m.staleness, m.nextStale = m.nextStale, m.staleness
}

func ageStaleness(s int) int {
	if s >= MaxStaleness {
		return s
	}
	return s + 1
}

// Initialized reports whether the model has seen at least one snapshot
func (m *Model) Initialized() bool { return m.grid != nil }

func (m *Model) Width() int {
	if m.grid == nil {
		return 0
	}
	return m.grid.W
}

func (m *Model) Height() int {
	if m.grid == nil {
		return 0
	}
	return m.grid.H
}

// Grid exposes the remembered grid. Callers must not modify it.
func (m *Model) Grid() *core.Grid { return m.grid }

func (m *Model) Zones() []core.Zone     { return m.zones }
func (m *Model) Players() []core.Player { return m.players }
func (m *Model) Agent() *core.Agent     { return m.agent }
func (m *Model) SelfID() string         { return m.selfID }
func (m *Model) Tick() int              { return m.tick }
func (m *Model) GameStateID() string    { return m.stateID }

// InBounds reports whether p lies on the remembered grid
func (m *Model) InBounds(p core.Position) bool {
	return m.grid != nil && m.grid.InBounds(p)
}

// At returns the remembered cell at p, nil when out of bounds
func (m *Model) At(p core.Position) *core.Cell {
	if m.grid == nil {
		return nil
	}
	return m.grid.At(p)
}

// IsWall reports whether p is a remembered wall or off the map
func (m *Model) IsWall(p core.Position) bool {
	return m.grid == nil || m.grid.IsWall(p)
}

// Staleness returns ticks since p was last observed, Unseen if never
func (m *Model) Staleness(p core.Position) int {
	if !m.InBounds(p) {
		return Unseen
	}
	return m.staleness[m.grid.Idx(p)]
}

// IsVisible reports whether p was in the visible set of the latest snapshot
func (m *Model) IsVisible(p core.Position) bool {
	c := m.At(p)
	return c != nil && c.Visible
}

// Zone returns the zone with the given index
func (m *Model) Zone(index int) (core.Zone, bool) {
	for _, z := range m.zones {
		if z.Index == index {
			return z, true
		}
	}
	return core.Zone{}, false
}

// Enemies lists remembered enemy tanks. onlyVisible restricts the result to
// tanks observed this tick.
func (m *Model) Enemies(onlyVisible bool) []Entity {
	return m.collect(func(c *core.Cell, stale int) bool {
		if c.Occupant.Kind != core.OccupantEnemyTank {
			return false
		}
		return !onlyVisible || stale == 0
	})
}

// Items lists remembered collectible items
func (m *Model) Items() []Entity {
	return m.collectKind(core.OccupantItem)
}

// Sightline returns the cells seen from origin looking along d, up to the
// first wall or the edge of the map
func (m *Model) Sightline(origin core.Position, d core.Direction) []core.Position {
	var cells []core.Position
	for p := origin.Move(d); m.InBounds(p) && !m.IsWall(p); p = p.Move(d) {
		cells = append(cells, p)
	}
	return cells
}

// Hazards lists every remembered occupant that can hurt the agent
func (m *Model) Hazards() []Entity {
	return m.collect(func(c *core.Cell, _ int) bool {
		switch c.Occupant.Kind {
		case core.OccupantBullet, core.OccupantDoubleBullet, core.OccupantLaser,
			core.OccupantMine, core.OccupantEnemyTank:
			return true
		default:
			return false
		}
	})
}

func (m *Model) collectKind(kind core.OccupantKind) []Entity {
	return m.collect(func(c *core.Cell, _ int) bool {
		return c.Occupant.Kind == kind
	})
}

func (m *Model) collect(keep func(c *core.Cell, stale int) bool) []Entity {
	if m.grid == nil {
		return nil
	}
	var out []Entity
	for i := range m.grid.Cells {
		c := &m.grid.Cells[i]
		if !keep(c, m.staleness[i]) {
			continue
		}
		out = append(out, Entity{
			Position:  m.grid.Pos(i),
			Occupant:  c.Occupant,
			Staleness: m.staleness[i],
		})
	}
	return out
}
