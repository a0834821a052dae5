package transport

import (
	"encoding/json"
	"fmt"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/states"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/protocol"
)

// handle reacts to one server packet. Only a rejection ends the session.
func (c *Client) handle(pkt protocol.Packet) error {
	switch {
	case pkt.Type.IsError():
		c.logger.Error().
			Str("packet", pkt.Type.String()).
			Str("message", protocol.ParseWarning(pkt)).
			Msg("Server reported an error")
		return nil
	case pkt.Type.IsWarning():
		c.logger.Warn().
			Str("warning", pkt.Type.String()).
			Str("message", protocol.ParseWarning(pkt)).
			Msg("Server warning")
		return nil
	}

	switch pkt.Type {
	case protocol.Ping:
		c.sendType(protocol.Pong)

	case protocol.ConnectionAccepted:
		c.transition(states.PhaseLobby, "connection accepted")
		c.sendType(protocol.GameStatusRequest)

	case protocol.ConnectionRejected:
		var p protocol.ConnectionRejectedPayload
		if err := pkt.Unmarshal(&p); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed rejection")
		}
		err := fmt.Errorf("%w: %s", ErrRejected, p.Reason)
		if ferr := c.machine.Fail(err); ferr != nil {
			c.logger.Error().Err(ferr).Msg("Failed to enter error phase")
		}
		return err

	case protocol.LobbyData:
		c.onLobbyData(pkt)

	case protocol.GameNotStarted:
		c.logger.Debug().Msg("Game not started yet")

	case protocol.GameStarting:
		c.transition(states.PhaseStarting, "game starting")
		if c.lobby == nil {
			c.sendType(protocol.LobbyDataRequest)
		}
		c.sendType(protocol.ReadyToReceiveGameState)

	case protocol.GameStarted:
		c.logger.Info().Msg("Game started")

	case protocol.GameInProgress:
		c.sendType(protocol.LobbyDataRequest)
		c.sendType(protocol.ReadyToReceiveGameState)

	case protocol.GameState:
		c.onGameState(pkt)

	case protocol.GameEnded:
		c.onGameEnded(pkt)

	default:
		c.logger.Debug().Str("packet", pkt.Type.String()).Msg("Ignoring packet")
	}
	return nil
}

func (c *Client) transition(to states.Phase, reason string) {
	if c.machine.CurrentPhase() == to {
		return
	}
	if err := c.machine.TransitionTo(to, reason); err != nil {
		c.logger.Debug().Err(err).Str("to_phase", to.String()).Msg("Phase unchanged")
	}
}

func (c *Client) onLobbyData(pkt protocol.Packet) {
	var p protocol.LobbyDataPayload
	if err := pkt.Unmarshal(&p); err != nil {
		c.logger.Warn().Err(err).Msg("Malformed lobby data")
		return
	}
	c.lobby = &p
	c.machine.GetContext().PlayerID = p.PlayerID

	c.logger.Info().
		Str("player_id", p.PlayerID).
		Int("players", len(p.Players)).
		Int("grid", p.ServerSettings.GridDimension).
		Bool("sandbox", p.ServerSettings.SandboxMode).
		Msg("Lobby data received")
}

func (c *Client) selfID() string {
	if c.lobby == nil {
		return ""
	}
	return c.lobby.PlayerID
}

// stateHeader is read when the full payload cannot be decoded, so the tick
// can still be answered
type stateHeader struct {
	ID   string `json:"id"`
	Tick int    `json:"tick"`
}

func (c *Client) onGameState(pkt protocol.Packet) {
	c.received.Add(1)

	if phase := c.machine.CurrentPhase(); !phase.CanAct() {
		if err := c.machine.TransitionTo(states.PhaseRunning, "game state received"); err != nil {
			c.logger.Warn().Err(err).Str("phase", phase.String()).Msg("Ignoring game state outside a match")
			return
		}
	}
	if c.lobby == nil {
		c.logger.Debug().Msg("Game state before lobby data, agent unknown")
	}

	s, err := c.decode(pkt.Payload)
	if err != nil {
		var h stateHeader
		_ = json.Unmarshal(pkt.Payload, &h)
		c.invalid.Add(1)
		c.logger.Error().Err(err).Int("tick", h.Tick).Msg("Game state violates the data contract")
		c.publisher.Publish(events.NewContractViolationEvent(c.opts.SessionID, h.Tick, err))
		if h.ID != "" {
			c.respond(core.Pass, &world.Snapshot{Tick: h.Tick, GameStateID: h.ID})
		}
		return
	}
	c.offer(s)
}

func (c *Client) decode(payload []byte) (*world.Snapshot, error) {
	if c.validator != nil {
		if err := c.validator.ValidateGameState(payload); err != nil {
			return nil, err
		}
	}
	return protocol.DecodeGameState(payload, c.selfID())
}

func (c *Client) onGameEnded(pkt protocol.Packet) {
	var p protocol.GameEndedPayload
	if err := pkt.Unmarshal(&p); err != nil {
		c.logger.Warn().Err(err).Msg("Malformed game result")
	}
	for _, player := range p.Players {
		e := c.logger.Info().Str("player_id", player.ID).Str("nickname", player.Nickname)
		if player.Score != nil {
			e = e.Int("score", *player.Score)
		}
		if player.Kills != nil {
			e = e.Int("kills", *player.Kills)
		}
		e.Bool("self", player.ID == c.selfID()).Msg("Final score")
	}

	c.transition(states.PhaseEnded, "game ended")
	if err := c.machine.Restart(states.PhaseLobby, "awaiting next match"); err != nil {
		c.logger.Error().Err(err).Msg("Failed to return to lobby")
	}
	c.lobby = nil
}
