package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

// occupantRank decides which entity becomes the primary occupant when a
// tile reports several. Hazards outrank tanks so a projectile on our own
// cell still shows up in the threat field.
var occupantRank = map[core.OccupantKind]int{
	core.OccupantEmpty:        0,
	core.OccupantItem:         1,
	core.OccupantMine:         2,
	core.OccupantEnemyTank:    3,
	core.OccupantSelfTank:     3,
	core.OccupantBullet:       4,
	core.OccupantDoubleBullet: 4,
	core.OccupantLaser:        5,
	core.OccupantWall:         6,
}

// DecodeGameState turns a GameState payload into a snapshot for selfID
func DecodeGameState(payload []byte, selfID string) (*world.Snapshot, error) {
	var gs GameStatePayload
	if err := json.Unmarshal(payload, &gs); err != nil {
		return nil, core.NewContractError(-1, nil, "game state payload", fmt.Errorf("%w: %v", ErrMalformedPacket, err))
	}
	return gs.Snapshot(selfID)
}

// Snapshot converts the column-major tile array and the row-major
// visibility strings into a row-major snapshot
func (gs *GameStatePayload) Snapshot(selfID string) (*world.Snapshot, error) {
	width := len(gs.Map.Tiles)
	height := 0
	if width > 0 {
		height = len(gs.Map.Tiles[0])
	}
	if width == 0 || height == 0 {
		return nil, core.NewContractError(gs.Tick, nil, "empty map", core.ErrBadDimensions)
	}
	for x, column := range gs.Map.Tiles {
		if len(column) != height {
			return nil, core.NewContractError(gs.Tick, nil,
				fmt.Sprintf("column %d has %d tiles, want %d", x, len(column), height),
				core.ErrBadDimensions)
		}
	}
	if len(gs.Map.Visibility) != height {
		return nil, core.NewContractError(gs.Tick, nil,
			fmt.Sprintf("%d visibility rows for height %d", len(gs.Map.Visibility), height),
			core.ErrBadDimensions)
	}
	for y, row := range gs.Map.Visibility {
		if len(row) != width {
			return nil, core.NewContractError(gs.Tick, nil,
				fmt.Sprintf("visibility row %d has %d cells, want %d", y, len(row), width),
				core.ErrBadDimensions)
		}
	}

	s := &world.Snapshot{
		Tick:        gs.Tick,
		GameStateID: gs.ID,
		Width:       width,
		Height:      height,
		Cells:       make([]core.Cell, width*height),
		SelfID:      selfID,
		Players:     make([]core.Player, 0, len(gs.Players)),
	}

	for _, rp := range gs.Players {
		s.Players = append(s.Players, convertPlayer(rp))
	}

	for _, rz := range gs.Map.Zones {
		status, err := convertZoneStatus(rz.Status)
		if err != nil {
			return nil, core.NewContractError(gs.Tick, nil, fmt.Sprintf("zone %d", rz.Index), err)
		}
		s.Zones = append(s.Zones, core.Zone{
			Index:  rz.Index,
			X:      rz.X,
			Y:      rz.Y,
			Width:  rz.Width,
			Height: rz.Height,
			Status: status,
		})
	}

	for x, column := range gs.Map.Tiles {
		for y, objects := range column {
			p := core.NewPosition(y, x)
			cell := &s.Cells[p.ToIndex(width)]
			cell.Visible = gs.Map.Visibility[y][x] == '1'

			for _, obj := range objects {
				occ, err := convertObject(obj, selfID)
				if err != nil {
					return nil, core.NewContractError(gs.Tick, &p, "tile object", err)
				}
				if occupantRank[occ.Kind] > occupantRank[cell.Occupant.Kind] {
					cell.Occupant = occ
				}
				if occ.Kind == core.OccupantSelfTank {
					s.Agent = newAgent(selfID, p, occ.Tank, s)
				}
			}
		}
	}

	for i := range s.Zones {
		idx := s.Zones[i].Index
		for _, p := range s.Zones[i].Cells() {
			if p.IsValid(width, height) {
				s.Cells[p.ToIndex(width)].Zone = &idx
			}
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func convertPlayer(rp RawPlayer) core.Player {
	p := core.Player{
		ID:           rp.ID,
		Nickname:     rp.Nickname,
		Color:        rp.Color,
		TicksToRegen: rp.TicksToRegen,
	}
	if rp.Score != nil {
		p.Score = *rp.Score
	}
	if rp.Kills != nil {
		p.Kills = *rp.Kills
	}
	if rp.Ping != nil {
		p.Ping = *rp.Ping
	}
	if rp.IsUsingRadar != nil {
		p.IsUsingRadar = *rp.IsUsingRadar
	}
	return p
}

// newAgent returns nil when the tank carries no health, which the server
// only omits for tanks that are not ours
func newAgent(selfID string, p core.Position, tank *core.TankInfo, s *world.Snapshot) *core.Agent {
	if tank.Health == nil {
		return nil
	}
	a := &core.Agent{
		ID:              selfID,
		Position:        p,
		Direction:       tank.Direction,
		TurretDirection: tank.TurretDirection,
		Health:          tank.Health,
		SecondaryItem:   tank.SecondaryItem,
		TicksToReload:   tank.TicksToReload,
	}
	if tank.BulletCount != nil {
		a.BulletCount = *tank.BulletCount
	}
	if player, ok := s.Player(selfID); ok {
		a.Player = player
	} else {
		a.Player = core.Player{ID: selfID}
	}
	return a
}

func convertObject(obj RawTileObject, selfID string) (core.Occupant, error) {
	switch obj.Kind() {
	case "wall":
		return core.WallOccupant(), nil

	case "bullet":
		var b RawBullet
		if err := unmarshalObject(obj, &b); err != nil {
			return core.Occupant{}, err
		}
		if b.Direction == nil {
			return core.Occupant{}, fmt.Errorf("bullet %d without direction: %w", b.ID, core.ErrUnknownOccupant)
		}
		speed := 0.0
		if b.Speed != nil {
			speed = *b.Speed
		}
		return core.NewBullet(b.ID, core.Direction(*b.Direction), speed, b.Type == BulletDouble), nil

	case "laser":
		var l RawLaser
		if err := unmarshalObject(obj, &l); err != nil {
			return core.Occupant{}, err
		}
		if l.Orientation == nil {
			return core.Occupant{}, fmt.Errorf("laser %d without orientation: %w", l.ID, core.ErrUnknownOccupant)
		}
		return core.NewLaser(l.ID, core.Orientation(*l.Orientation)), nil

	case "mine":
		var m RawMine
		if err := unmarshalObject(obj, &m); err != nil {
			return core.Occupant{}, err
		}
		return core.NewMine(m.ID, m.ExplosionRemainingTicks), nil

	case "item":
		var it RawItem
		if err := unmarshalObject(obj, &it); err != nil {
			return core.Occupant{}, err
		}
		return core.NewItem(core.ItemKind(it.Type)), nil

	case "tank":
		var t RawTank
		if err := unmarshalObject(obj, &t); err != nil {
			return core.Occupant{}, err
		}
		info := core.TankInfo{
			OwnerID:         t.OwnerID,
			Direction:       core.Direction(t.Direction),
			TurretDirection: core.Direction(t.Turret.Direction),
			Health:          t.Health,
			BulletCount:     t.Turret.BulletCount,
			TicksToReload:   t.Turret.TicksToRegenBullet,
		}
		if t.SecondaryItem != nil {
			kind := core.ItemKind(*t.SecondaryItem)
			info.SecondaryItem = &kind
		}
		return core.NewTank(info, t.OwnerID == selfID), nil

	default:
		return core.Occupant{}, fmt.Errorf("tile object %q: %w", obj.Type, core.ErrUnknownOccupant)
	}
}

func unmarshalObject(obj RawTileObject, v any) error {
	if len(obj.Payload) == 0 {
		return fmt.Errorf("%s without payload: %w", obj.Kind(), core.ErrUnknownOccupant)
	}
	if err := json.Unmarshal(obj.Payload, v); err != nil {
		return fmt.Errorf("%s payload: %v: %w", obj.Kind(), err, core.ErrUnknownOccupant)
	}
	return nil
}

// convertZoneStatus accepts camelCase, snake_case and upper case spellings
func convertZoneStatus(rs RawZoneStatus) (core.ZoneStatus, error) {
	status := core.ZoneStatus{
		PlayerID:       rs.PlayerID,
		CapturedByID:   rs.CapturedByID,
		RetakenByID:    rs.RetakenByID,
		RemainingTicks: rs.RemainingTicks,
	}

	switch strings.ToLower(strings.ReplaceAll(rs.Type, "_", "")) {
	case "neutral":
		status.Kind = core.ZoneNeutral
	case "beingcaptured":
		status.Kind = core.ZoneBeingCaptured
	case "captured":
		status.Kind = core.ZoneCaptured
	case "beingcontested":
		status.Kind = core.ZoneBeingContested
	case "beingretaken":
		status.Kind = core.ZoneBeingRetaken
	default:
		return core.ZoneStatus{}, fmt.Errorf("status %q: %w", rs.Type, core.ErrMalformedZone)
	}

	if err := status.Validate(); err != nil {
		return core.ZoneStatus{}, err
	}
	return status, nil
}
