package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedPacket means the frame is not a {"type","payload"} object
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrMissingPayload means a packet type that carries a payload arrived without one
	ErrMissingPayload = errors.New("packet payload missing")
)

// PacketType is the one byte packet discriminator. The high nibble is the
// group, bit 3 flags a payload and the low three bits select the type.
type PacketType uint8

const (
	HasPayload PacketType = 0x08

	GroupCommunication PacketType = 0x10
	GroupLobby         PacketType = 0x20
	GroupGameState     PacketType = 0x30
	GroupResponse      PacketType = 0x40
	GroupGameStatus    PacketType = 0x50
	GroupWarning       PacketType = 0xE0
	GroupError         PacketType = 0xF0
)

const (
	Unknown PacketType = 0x00

	Ping               = GroupCommunication | 0x1
	Pong               = GroupCommunication | 0x2
	ConnectionAccepted = GroupCommunication | 0x3
	ConnectionRejected = GroupCommunication | HasPayload | 0x4

	LobbyData        = GroupLobby | HasPayload | 0x1
	LobbyDataRequest = GroupLobby | 0x2

	GameState               = GroupGameState | HasPayload | 0x2
	ReadyToReceiveGameState = GroupGameState | 0x5

	Movement   = GroupResponse | HasPayload | 0x1
	Rotation   = GroupResponse | HasPayload | 0x2
	AbilityUse = GroupResponse | HasPayload | 0x3
	PassAction = GroupResponse | HasPayload | 0x7

	GameNotStarted    = GroupGameStatus | 0x1
	GameStarting      = GroupGameStatus | 0x2
	GameStarted       = GroupGameStatus | 0x3
	GameInProgress    = GroupGameStatus | 0x4
	GameEnded         = GroupGameStatus | HasPayload | 0x5
	GameStatusRequest = GroupGameStatus | 0x7

	CustomWarning            = GroupWarning | HasPayload | 0x1
	AlreadyMadeActionWarning = GroupWarning | 0x2
	ActionIgnoredDeadWarning = GroupWarning | 0x3
	SlowResponseWarning      = GroupWarning | 0x4
)

var packetNames = map[PacketType]string{
	Ping:                     "ping",
	Pong:                     "pong",
	ConnectionAccepted:       "connection_accepted",
	ConnectionRejected:       "connection_rejected",
	LobbyData:                "lobby_data",
	LobbyDataRequest:         "lobby_data_request",
	GameState:                "game_state",
	ReadyToReceiveGameState:  "ready_to_receive_game_state",
	Movement:                 "movement",
	Rotation:                 "rotation",
	AbilityUse:               "ability_use",
	PassAction:               "pass",
	GameNotStarted:           "game_not_started",
	GameStarting:             "game_starting",
	GameStarted:              "game_started",
	GameInProgress:           "game_in_progress",
	GameEnded:                "game_ended",
	GameStatusRequest:        "game_status_request",
	CustomWarning:            "custom_warning",
	AlreadyMadeActionWarning: "already_made_action_warning",
	ActionIgnoredDeadWarning: "action_ignored_dead_warning",
	SlowResponseWarning:      "slow_response_warning",
}

func (t PacketType) String() string {
	if name, ok := packetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("packet(0x%02X)", uint8(t))
}

// Group returns the high nibble
func (t PacketType) Group() PacketType { return t & 0xF0 }

// HasPayload reports whether the type flags a payload
func (t PacketType) HasPayload() bool { return t&HasPayload != 0 }

func (t PacketType) IsWarning() bool { return t.Group() == GroupWarning }
func (t PacketType) IsError() bool   { return t.Group() == GroupError }

// Packet is one websocket text frame
type Packet struct {
	Type    PacketType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a frame. The payload stays raw until the type is known.
func Decode(data []byte) (Packet, error) {
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	if p.Type.HasPayload() && len(p.Payload) == 0 && !p.Type.IsWarning() && !p.Type.IsError() {
		return Packet{}, fmt.Errorf("%s: %w", p.Type, ErrMissingPayload)
	}
	return p, nil
}

// NewPacket builds a frame, marshalling payload when it is not nil
func NewPacket(t PacketType, payload any) (Packet, error) {
	p := Packet{Type: t}
	if payload == nil {
		return p, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Packet{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	p.Payload = raw
	return p, nil
}

// Encode serializes the frame
func (p Packet) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal decodes the payload into v
func (p Packet) Unmarshal(v any) error {
	if len(p.Payload) == 0 {
		return fmt.Errorf("%s: %w", p.Type, ErrMissingPayload)
	}
	if err := json.Unmarshal(p.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", p.Type, err)
	}
	return nil
}
