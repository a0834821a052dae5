package world

import (
	"fmt"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
)

// Snapshot is one decoded observation from the server. Cells are row-major
// with the Row/Col convention of core.Position. A cell outside the visible set
// may still carry an occupant (radar reveals).
type Snapshot struct {
	Tick        int
	GameStateID string
	Width       int
	Height      int
	Cells       []core.Cell
	Zones       []core.Zone
	Players     []core.Player
	SelfID      string
	// Agent is nil when our tank is not on the map
	Agent *core.Agent
}

// At returns the snapshot cell at p
func (s *Snapshot) At(p core.Position) *core.Cell {
	if !p.IsValid(s.Width, s.Height) {
		return nil
	}
	return &s.Cells[p.ToIndex(s.Width)]
}

// Validate checks dimensions, occupants and zone statuses. Any failure is a
// *core.ContractError.
func (s *Snapshot) Validate() error {
	if s.Width <= 0 || s.Height <= 0 || len(s.Cells) != s.Width*s.Height {
		return core.NewContractError(s.Tick, nil,
			fmt.Sprintf("grid %dx%d with %d cells", s.Width, s.Height, len(s.Cells)),
			core.ErrBadDimensions)
	}

	for i := range s.Cells {
		if err := s.Cells[i].Occupant.Validate(); err != nil {
			p := core.FromIndex(i, s.Width)
			return core.NewContractError(s.Tick, &p, "occupant", err)
		}
	}

	for _, z := range s.Zones {
		if err := z.Status.Validate(); err != nil {
			return core.NewContractError(s.Tick, nil, fmt.Sprintf("zone %d", z.Index), err)
		}
	}

	return nil
}

// Player returns the player record with the given id
func (s *Snapshot) Player(id string) (core.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return core.Player{}, false
}
