package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/states"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/protocol"
)

var (
	// ErrRejected is returned by Run when the server refuses the connection
	ErrRejected = errors.New("connection rejected by server")
	// ErrTooManyReconnects is returned by Run once the reconnect budget is spent
	ErrTooManyReconnects = errors.New("reconnect attempts exhausted")

	errClosedByServer = errors.New("connection closed by server")
	errNotConnected   = errors.New("not connected")
)

// Decider produces one action per snapshot. *game.Engine implements it.
type Decider interface {
	Decide(s *world.Snapshot) core.Action
	Reset()
}

// Options configures the client
type Options struct {
	Host     string
	Port     int
	Nickname string
	JoinCode string

	// DecisionTimeout is how long a decision may run before Pass is sent
	DecisionTimeout time.Duration
	WriteTimeout    time.Duration

	// ReconnectPerSecond throttles dials; zero or less means unthrottled
	ReconnectPerSecond float64
	ReconnectBurst     int
	// MaxReconnects caps consecutive failed connections; zero means no cap
	MaxReconnects int

	ValidateSchema bool
	SessionID      string
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Host:               "localhost",
		Port:               5000,
		Nickname:           "TankBattleAgent",
		DecisionTimeout:    150 * time.Millisecond,
		WriteTimeout:       time.Second,
		ReconnectPerSecond: 0.5,
		ReconnectBurst:     3,
		MaxReconnects:      10,
	}
}

// Stats counts game states since the client was created
type Stats struct {
	Received int64
	Answered int64
	Dropped  int64
	TimedOut int64
	Invalid  int64
}

// Client speaks the game protocol over a websocket and feeds game states to
// the decider, one at a time
type Client struct {
	opts      Options
	dialer    Dialer
	decider   Decider
	machine   *states.StateMachine
	publisher events.Publisher
	validator *protocol.Validator
	limiter   *rate.Limiter
	logger    zerolog.Logger

	writeMu sync.Mutex
	conn    Conn

	mailbox      chan *world.Snapshot
	busy         atomic.Bool
	inFlight     atomic.Int64
	resetPending atomic.Bool

	// only touched by the read loop
	lobby *protocol.LobbyDataPayload

	received atomic.Int64
	answered atomic.Int64
	dropped  atomic.Int64
	timedOut atomic.Int64
	invalid  atomic.Int64
}

// NewClient wires a client. The decider is reset whenever the state
// machine enters a new match.
func NewClient(opts Options, dialer Dialer, decider Decider, machine *states.StateMachine, publisher events.Publisher, logger zerolog.Logger) (*Client, error) {
	if opts.DecisionTimeout <= 0 {
		return nil, fmt.Errorf("decision timeout must be positive, got %s", opts.DecisionTimeout)
	}
	if opts.Nickname == "" {
		return nil, states.ErrNoNickname
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	limit := rate.Inf
	if opts.ReconnectPerSecond > 0 {
		limit = rate.Limit(opts.ReconnectPerSecond)
	}
	burst := opts.ReconnectBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		opts:      opts,
		dialer:    dialer,
		decider:   decider,
		machine:   machine,
		publisher: publisher,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger.With().Str("component", "Transport").Logger(),
		mailbox:   make(chan *world.Snapshot, 1),
	}

	if opts.ValidateSchema {
		v, err := protocol.NewValidator()
		if err != nil {
			return nil, fmt.Errorf("create validator: %w", err)
		}
		c.validator = v
	}

	sc := machine.GetContext()
	prev := sc.OnMatchStart
	sc.OnMatchStart = func() {
		if prev != nil {
			prev()
		}
		// applied by the decision loop so it never races a running decision
		c.resetPending.Store(true)
	}

	return c, nil
}

// Run connects and serves until ctx is cancelled, the server closes the
// connection, the server rejects us or the reconnect budget is spent
func (c *Client) Run(ctx context.Context) error {
	target := ServerURL(c.opts.Host, c.opts.Port, c.opts.Nickname, c.opts.JoinCode)
	failures := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reconnect limiter: %w", err)
		}

		c.logger.Info().Str("url", target).Int("attempt", failures+1).Msg("Connecting to game server")
		conn, err := c.dialer.Dial(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			c.logger.Warn().Err(err).Int("failures", failures).Msg("Dial failed")
			if c.exhausted(failures) {
				return fmt.Errorf("%w after %d attempts: %v", ErrTooManyReconnects, failures, err)
			}
			continue
		}

		accepted, err := c.session(ctx, conn)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrRejected):
			return err
		case errors.Is(err, errClosedByServer):
			c.logger.Info().Msg("Server closed the connection")
			return nil
		}

		if accepted {
			failures = 0
		} else {
			failures++
		}
		c.logger.Warn().Err(err).Int("failures", failures).Msg("Connection lost")
		if c.exhausted(failures) {
			return fmt.Errorf("%w after %d attempts: %v", ErrTooManyReconnects, failures, err)
		}
		c.enterConnecting(err)
	}
}

func (c *Client) exhausted(failures int) bool {
	return c.opts.MaxReconnects > 0 && failures >= c.opts.MaxReconnects
}

// enterConnecting moves the state machine back to PhaseConnecting from
// wherever the lost connection left it
func (c *Client) enterConnecting(cause error) {
	reason := "reconnecting"
	if cause != nil {
		reason = cause.Error()
	}

	var err error
	switch phase := c.machine.CurrentPhase(); {
	case phase == states.PhaseConnecting:
		return
	case phase.IsTerminal() || phase == states.PhaseReset:
		err = c.machine.Restart(states.PhaseConnecting, reason)
	default:
		err = c.machine.TransitionTo(states.PhaseConnecting, reason)
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to return to connecting phase")
	}
}

// session serves one connection. The read loop and the decision loop run
// under one errgroup; whichever fails first tears the connection down.
func (c *Client) session(ctx context.Context, conn Conn) (bool, error) {
	c.setConn(conn)
	defer c.setConn(nil)

	accepted := false
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-gctx.Done()
		_ = conn.Close()
		return nil
	})
	eg.Go(func() error {
		return c.readLoop(conn, &accepted)
	})
	eg.Go(func() error {
		return c.decideLoop(gctx)
	})

	err := eg.Wait()

	// a snapshot left over from this connection cannot be answered anymore
	select {
	case <-c.mailbox:
	default:
	}
	return accepted, err
}

func (c *Client) setConn(conn Conn) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn = conn
}

func (c *Client) readLoop(conn Conn, accepted *bool) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errClosedByServer
			}
			return fmt.Errorf("read: %w", err)
		}

		pkt, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Dropping undecodable packet")
			continue
		}
		if pkt.Type == protocol.ConnectionAccepted {
			*accepted = true
		}
		if err := c.handle(pkt); err != nil {
			return err
		}
	}
}

func (c *Client) decideLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-c.mailbox:
			c.answer(ctx, s)
		}
	}
}

// offer hands a snapshot to the decision loop. While a decision is running
// the new snapshot is dropped; a snapshot still waiting in the mailbox is
// replaced by the newer one.
func (c *Client) offer(s *world.Snapshot) {
	if c.busy.Load() {
		c.drop(s.Tick, int(c.inFlight.Load()))
		return
	}
	for {
		select {
		case c.mailbox <- s:
			return
		default:
		}
		select {
		case old := <-c.mailbox:
			c.drop(old.Tick, s.Tick)
		default:
		}
	}
}

func (c *Client) drop(tick, replacement int) {
	c.dropped.Add(1)
	c.logger.Warn().
		Int("tick", tick).
		Int("replacement_tick", replacement).
		Msg("Dropping game state, decision in flight")
	c.publisher.Publish(events.NewSnapshotDroppedEvent(c.opts.SessionID, tick, replacement))
}

// answer runs one decision against the deadline. Pass goes out when the
// deadline passes first; the late result is discarded, but answer still
// waits for it so two decisions never overlap.
func (c *Client) answer(ctx context.Context, s *world.Snapshot) {
	c.busy.Store(true)
	c.inFlight.Store(int64(s.Tick))
	defer c.busy.Store(false)

	if c.resetPending.CompareAndSwap(true, false) {
		c.decider.Reset()
	}

	done := make(chan core.Action, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error().Int("tick", s.Tick).Interface("panic", r).Msg("Decider panicked")
				done <- core.Pass
			}
		}()
		done <- c.decider.Decide(s)
	}()

	timer := time.NewTimer(c.opts.DecisionTimeout)
	defer timer.Stop()

	select {
	case action := <-done:
		c.respond(action, s)
		c.answered.Add(1)
	case <-timer.C:
		c.timedOut.Add(1)
		c.logger.Warn().
			Int("tick", s.Tick).
			Dur("deadline", c.opts.DecisionTimeout).
			Msg("Decision deadline exceeded, passing")
		c.respond(core.Pass, s)
		<-done
	case <-ctx.Done():
		<-done
	}
}

func (c *Client) respond(action core.Action, s *world.Snapshot) {
	pkt, err := protocol.EncodeAction(action, s.GameStateID)
	if err != nil {
		c.logger.Error().Err(err).Int("tick", s.Tick).Msg("Cannot encode action, passing")
		pkt, _ = protocol.EncodeAction(core.Pass, s.GameStateID)
	}
	if err := c.send(pkt); err != nil {
		c.logger.Warn().Err(err).Int("tick", s.Tick).Msg("Failed to send response")
	}
}

func (c *Client) send(pkt protocol.Packet) error {
	frame, err := pkt.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", pkt.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return errNotConnected
	}
	if c.opts.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", pkt.Type, err)
	}
	return nil
}

func (c *Client) sendType(t protocol.PacketType) {
	if err := c.send(protocol.Packet{Type: t}); err != nil {
		c.logger.Warn().Err(err).Str("packet", t.String()).Msg("Failed to send packet")
	}
}

// Stats returns a snapshot of the counters
func (c *Client) Stats() Stats {
	return Stats{
		Received: c.received.Load(),
		Answered: c.answered.Load(),
		Dropped:  c.dropped.Load(),
		TimedOut: c.timedOut.Load(),
		Invalid:  c.invalid.Load(),
	}
}
