package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RawPlayer is a player record as sent by the server. Optional fields are
// only present for players we can see.
type RawPlayer struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	Color        uint32 `json:"color"`
	Score        *int   `json:"score,omitempty"`
	Kills        *int   `json:"kills,omitempty"`
	Ping         *int   `json:"ping,omitempty"`
	TicksToRegen *int   `json:"ticksToRegen,omitempty"`
	IsUsingRadar *bool  `json:"isUsingRadar,omitempty"`
}

type ServerSettings struct {
	GridDimension     int     `json:"gridDimension"`
	NumberOfPlayers   int     `json:"numberOfPlayers"`
	Seed              int64   `json:"seed"`
	Ticks             *int    `json:"ticks,omitempty"`
	BroadcastInterval int     `json:"broadcastInterval"`
	SandboxMode       bool    `json:"sandboxMode"`
	EagerBroadcast    bool    `json:"eagerBroadcast"`
	MatchName         *string `json:"matchName,omitempty"`
	Version           string  `json:"version"`
}

type LobbyDataPayload struct {
	PlayerID       string         `json:"playerId"`
	Players        []RawPlayer    `json:"players"`
	ServerSettings ServerSettings `json:"serverSettings"`
}

type ConnectionRejectedPayload struct {
	Reason string `json:"reason"`
}

type GameEndedPayload struct {
	Players []RawPlayer `json:"players"`
}

// WarningPayload is the body of a custom warning
type WarningPayload struct {
	Message string `json:"message"`
}

// ParseWarning extracts the message of a warning packet. Only custom
// warnings carry one; the server sends it either as a string or as an
// object with a message field.
func ParseWarning(p Packet) string {
	if len(p.Payload) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Payload, &s); err == nil {
		return s
	}
	var w WarningPayload
	if err := json.Unmarshal(p.Payload, &w); err == nil {
		return w.Message
	}
	return string(p.Payload)
}

type GameStatePayload struct {
	ID      string      `json:"id"`
	Tick    int         `json:"tick"`
	Players []RawPlayer `json:"players"`
	Map     RawMap      `json:"map"`
}

// RawMap holds tiles indexed [x][y] and visibility rows indexed [y][x]
type RawMap struct {
	Tiles      [][][]RawTileObject `json:"tiles"`
	Zones      []RawZone           `json:"zones"`
	Visibility []string            `json:"visibility"`
}

// RawTileObject is one entity on a tile. Payload is decoded by type.
type RawTileObject struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Kind returns the normalized object type
func (o RawTileObject) Kind() string {
	return strings.ToLower(strings.TrimSpace(o.Type))
}

type RawBullet struct {
	ID        int        `json:"id"`
	Speed     *float64   `json:"speed,omitempty"`
	Direction *int       `json:"direction,omitempty"`
	Type      BulletKind `json:"type"`
}

// BulletKind accepts both the numeric and the named wire form
type BulletKind int

const (
	BulletBasic BulletKind = iota
	BulletDouble
)

func (k *BulletKind) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n != int(BulletBasic) && n != int(BulletDouble) {
			return fmt.Errorf("bullet type %d", n)
		}
		*k = BulletKind(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("bullet type %s", data)
	}
	switch strings.ToLower(s) {
	case "basic", "bullet":
		*k = BulletBasic
	case "double", "doublebullet", "double_bullet":
		*k = BulletDouble
	default:
		return fmt.Errorf("bullet type %q", s)
	}
	return nil
}

type RawLaser struct {
	ID          int  `json:"id"`
	Orientation *int `json:"orientation,omitempty"`
}

type RawMine struct {
	ID                      int  `json:"id"`
	ExplosionRemainingTicks *int `json:"explosionRemainingTicks,omitempty"`
}

type RawItem struct {
	Type int `json:"type"`
}

type RawTurret struct {
	Direction          int  `json:"direction"`
	BulletCount        *int `json:"bulletCount,omitempty"`
	TicksToRegenBullet *int `json:"ticksToRegenBullet,omitempty"`
}

type RawTank struct {
	OwnerID       string    `json:"ownerId"`
	Direction     int       `json:"direction"`
	Turret        RawTurret `json:"turret"`
	Health        *int      `json:"health,omitempty"`
	SecondaryItem *int      `json:"secondaryItem,omitempty"`
}

type RawZoneStatus struct {
	Type           string  `json:"type"`
	PlayerID       *string `json:"playerId,omitempty"`
	CapturedByID   *string `json:"capturedById,omitempty"`
	RetakenByID    *string `json:"retakenById,omitempty"`
	RemainingTicks *int    `json:"remainingTicks,omitempty"`
}

type RawZone struct {
	X      int           `json:"x"`
	Y      int           `json:"y"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Index  int           `json:"index"`
	Status RawZoneStatus `json:"status"`
}

// Response payloads. Every response names the game state it answers.

type MovementPayload struct {
	GameStateID string `json:"gameStateId"`
	Direction   int    `json:"direction"`
}

type RotationPayload struct {
	GameStateID    string `json:"gameStateId"`
	TankRotation   *int   `json:"tankRotation"`
	TurretRotation *int   `json:"turretRotation"`
}

type AbilityUsePayload struct {
	GameStateID string `json:"gameStateId"`
	AbilityType int    `json:"abilityType"`
}

type PassPayload struct {
	GameStateID string `json:"gameStateId"`
}
