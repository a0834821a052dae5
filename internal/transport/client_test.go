package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/states"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/protocol"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/testutil"
)

const waitFor = 2 * time.Second

// fakeConn plays the server side of a websocket
type fakeConn struct {
	in        chan []byte
	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-f.in:
		if !ok {
			return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
		}
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("use of closed connection")
	default:
	}
	f.out <- data
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) push(t *testing.T, typ protocol.PacketType, payload any) {
	t.Helper()
	pkt, err := protocol.NewPacket(typ, payload)
	require.NoError(t, err)
	frame, err := pkt.Encode()
	require.NoError(t, err)
	f.in <- frame
}

func (f *fakeConn) pushRaw(typ protocol.PacketType, payload string) {
	f.in <- []byte(fmt.Sprintf(`{"type":%d,"payload":%s}`, uint8(typ), payload))
}

// expect returns the next packet the client sent and checks its type
func (f *fakeConn) expect(t *testing.T, typ protocol.PacketType) protocol.Packet {
	t.Helper()
	select {
	case data := <-f.out:
		pkt, err := protocol.Decode(data)
		require.NoError(t, err)
		require.Equal(t, typ, pkt.Type, "payload %s", pkt.Payload)
		return pkt
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for %s", typ)
		return protocol.Packet{}
	}
}

type fakeDialer struct {
	conns []Conn
	err   error
	dials atomic.Int32
}

func (d *fakeDialer) Dial(context.Context, string) (Conn, error) {
	n := int(d.dials.Add(1)) - 1
	if d.err != nil {
		return nil, d.err
	}
	if n >= len(d.conns) {
		return nil, errors.New("no more connections")
	}
	return d.conns[n], nil
}

type fakeDecider struct {
	mu      sync.Mutex
	action  core.Action
	gate    chan struct{}
	started chan int
	seen    []*world.Snapshot
	resets  int
}

func newFakeDecider(action core.Action) *fakeDecider {
	return &fakeDecider{action: action, started: make(chan int, 16)}
}

func (d *fakeDecider) Decide(s *world.Snapshot) core.Action {
	d.started <- s.Tick
	if d.gate != nil {
		<-d.gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, s)
	return d.action
}

func (d *fakeDecider) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets++
}

func (d *fakeDecider) snapshot() ([]*world.Snapshot, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*world.Snapshot(nil), d.seen...), d.resets
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(typ string) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.events {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	client  *Client
	machine *states.StateMachine
	decider *fakeDecider
	log     *eventLog
	conn    *fakeConn
	dialer  *fakeDialer
	errCh   chan error
	cancel  context.CancelFunc
}

func newHarness(t *testing.T, opts Options, decider *fakeDecider) *harness {
	t.Helper()
	log := &eventLog{}
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []Conn{conn}}
	machine := states.NewStateMachine(states.NewSessionContext("s1", opts.Nickname, testutil.NopLogger()), log)

	client, err := NewClient(opts, dialer, decider, machine, log, testutil.NopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		client:  client,
		machine: machine,
		decider: decider,
		log:     log,
		conn:    conn,
		dialer:  dialer,
		errCh:   make(chan error, 1),
		cancel:  cancel,
	}
	go func() { h.errCh <- client.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.errCh:
		return err
	case <-time.After(waitFor):
		t.Fatal("client did not stop")
		return nil
	}
}

func (h *harness) join(t *testing.T) {
	t.Helper()
	h.conn.push(t, protocol.ConnectionAccepted, nil)
	h.conn.expect(t, protocol.GameStatusRequest)
	h.conn.push(t, protocol.GameInProgress, nil)
	h.conn.expect(t, protocol.LobbyDataRequest)
	h.conn.expect(t, protocol.ReadyToReceiveGameState)
	h.conn.push(t, protocol.LobbyData, protocol.LobbyDataPayload{PlayerID: "me"})
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Nickname = "bot"
	opts.ReconnectPerSecond = 0
	opts.DecisionTimeout = time.Second
	opts.SessionID = "s1"
	return opts
}

func gameState(id string, tick int) string {
	return fmt.Sprintf(`{"id":%q,"tick":%d,"players":[{"id":"me","nickname":"bot","color":1}],
"map":{"tiles":[[[{"type":"tank","payload":{"ownerId":"me","direction":1,"turret":{"direction":1,"bulletCount":3},"health":100}}]],[[]]],
"zones":[],"visibility":["11"]}}`, id, tick)
}

func decodeResponse(t *testing.T, pkt protocol.Packet) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(pkt.Payload, &body))
	return body
}

func TestServerURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000/?nickname=bot&playerType=hackathonBot", ServerURL("localhost", 5000, "bot", ""))
	assert.Equal(t, "ws://10.0.0.2:80/?joinCode=abc&nickname=my+bot&playerType=hackathonBot", ServerURL("10.0.0.2", 80, "my bot", "abc"))
}

func TestNewClient_Validation(t *testing.T) {
	machine := states.NewStateMachine(states.NewSessionContext("s", "bot", testutil.NopLogger()), nil)

	opts := testOptions()
	opts.DecisionTimeout = 0
	_, err := NewClient(opts, &fakeDialer{}, newFakeDecider(core.Pass), machine, nil, testutil.NopLogger())
	assert.Error(t, err)

	opts = testOptions()
	opts.Nickname = ""
	_, err = NewClient(opts, &fakeDialer{}, newFakeDecider(core.Pass), machine, nil, testutil.NopLogger())
	assert.ErrorIs(t, err, states.ErrNoNickname)
}

func TestClient_Run_AnswersGameState(t *testing.T) {
	// Arrange
	decider := newFakeDecider(core.Move(core.Forward))
	h := newHarness(t, testOptions(), decider)

	// Act
	h.conn.push(t, protocol.Ping, nil)
	h.conn.expect(t, protocol.Pong)
	h.join(t)
	h.conn.pushRaw(protocol.GameState, gameState("gs-1", 1))

	// Assert
	resp := h.conn.expect(t, protocol.Movement)
	body := decodeResponse(t, resp)
	assert.Equal(t, "gs-1", body["gameStateId"])
	assert.EqualValues(t, 0, body["direction"])

	close(h.conn.in)
	require.NoError(t, h.wait(t))

	seen, resets := decider.snapshot()
	require.Len(t, seen, 1)
	require.NotNil(t, seen[0].Agent, "self id comes from lobby data")
	assert.Equal(t, core.NewPosition(0, 0), seen[0].Agent.Position)
	assert.Equal(t, 1, resets, "entering a match resets the decider")
	assert.Equal(t, states.PhaseRunning, h.machine.CurrentPhase())
	assert.Equal(t, "me", h.machine.GetContext().PlayerID)
	assert.Equal(t, int64(1), h.client.Stats().Answered)
}

func TestClient_Run_DropsWhileBusy(t *testing.T) {
	// Arrange
	decider := newFakeDecider(core.Pass)
	decider.gate = make(chan struct{})
	h := newHarness(t, testOptions(), decider)
	h.join(t)

	// Act: the second state arrives while the first is being decided
	h.conn.pushRaw(protocol.GameState, gameState("gs-1", 1))
	select {
	case tick := <-decider.started:
		require.Equal(t, 1, tick)
	case <-time.After(waitFor):
		t.Fatal("decision never started")
	}
	h.conn.pushRaw(protocol.GameState, gameState("gs-2", 2))
	require.Eventually(t, func() bool { return h.client.Stats().Dropped == 1 }, waitFor, 5*time.Millisecond)
	close(decider.gate)

	// Assert
	resp := h.conn.expect(t, protocol.PassAction)
	assert.Equal(t, "gs-1", decodeResponse(t, resp)["gameStateId"])

	dropped := h.log.ofType(events.TypeSnapshotDropped)
	require.Len(t, dropped, 1)
	assert.Equal(t, 2, dropped[0].TickNumber())
	assert.Equal(t, 1, dropped[0].(*events.SnapshotDroppedEvent).Replacement)

	close(h.conn.in)
	require.NoError(t, h.wait(t))
	seen, _ := decider.snapshot()
	assert.Len(t, seen, 1)
}

func TestClient_Run_DeadlinePasses(t *testing.T) {
	// Arrange
	decider := newFakeDecider(core.Move(core.Forward))
	decider.gate = make(chan struct{})
	opts := testOptions()
	opts.DecisionTimeout = 20 * time.Millisecond
	h := newHarness(t, opts, decider)
	h.join(t)

	// Act
	h.conn.pushRaw(protocol.GameState, gameState("gs-7", 7))

	// Assert: Pass goes out although the decision is still running
	resp := h.conn.expect(t, protocol.PassAction)
	assert.Equal(t, "gs-7", decodeResponse(t, resp)["gameStateId"])
	assert.Equal(t, int64(1), h.client.Stats().TimedOut)

	close(decider.gate)
	close(h.conn.in)
	require.NoError(t, h.wait(t))

	select {
	case data := <-h.conn.out:
		t.Fatalf("late result was sent: %s", data)
	default:
	}
}

func TestClient_Run_ContractViolationPasses(t *testing.T) {
	decider := newFakeDecider(core.Move(core.Forward))
	h := newHarness(t, testOptions(), decider)
	h.join(t)

	h.conn.pushRaw(protocol.GameState, `{"id":"gs-3","tick":3,"players":[],"map":{"tiles":[[[{"type":"portal"}]]],"zones":[],"visibility":["1"]}}`)

	resp := h.conn.expect(t, protocol.PassAction)
	assert.Equal(t, "gs-3", decodeResponse(t, resp)["gameStateId"])
	violations := h.log.ofType(events.TypeContractViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, 3, violations[0].TickNumber())

	close(h.conn.in)
	require.NoError(t, h.wait(t))
	seen, _ := decider.snapshot()
	assert.Empty(t, seen)
	assert.Equal(t, int64(1), h.client.Stats().Invalid)
}

func TestClient_Run_SchemaValidation(t *testing.T) {
	opts := testOptions()
	opts.ValidateSchema = true
	decider := newFakeDecider(core.Move(core.Forward))
	h := newHarness(t, opts, decider)
	h.join(t)

	h.conn.pushRaw(protocol.GameState, `{"id":"gs-4","tick":-4,"players":[],"map":{"tiles":[[[]]],"zones":[],"visibility":["1"]}}`)
	resp := h.conn.expect(t, protocol.PassAction)
	assert.Equal(t, "gs-4", decodeResponse(t, resp)["gameStateId"])

	h.conn.pushRaw(protocol.GameState, gameState("gs-5", 5))
	h.conn.expect(t, protocol.Movement)

	close(h.conn.in)
	require.NoError(t, h.wait(t))
}

func TestClient_Run_MatchLifecycle(t *testing.T) {
	// Arrange
	decider := newFakeDecider(core.Pass)
	h := newHarness(t, testOptions(), decider)
	h.conn.push(t, protocol.ConnectionAccepted, nil)
	h.conn.expect(t, protocol.GameStatusRequest)

	// Act
	h.conn.push(t, protocol.GameStarting, nil)
	h.conn.expect(t, protocol.LobbyDataRequest)
	h.conn.expect(t, protocol.ReadyToReceiveGameState)
	h.conn.push(t, protocol.LobbyData, protocol.LobbyDataPayload{PlayerID: "me"})
	h.conn.push(t, protocol.GameStarted, nil)
	h.conn.pushRaw(protocol.GameState, gameState("gs-1", 1))
	h.conn.expect(t, protocol.PassAction)
	h.conn.pushRaw(protocol.GameEnded, `{"players":[{"id":"me","nickname":"bot","color":1,"score":12,"kills":2}]}`)
	close(h.conn.in)
	require.NoError(t, h.wait(t))

	// Assert
	var path []string
	for _, tr := range h.machine.GetHistory() {
		path = append(path, tr.To.String())
	}
	assert.Equal(t, []string{"Lobby", "Starting", "Running", "Ended", "Reset", "Lobby"}, path)
	assert.Len(t, h.log.ofType(events.TypePhaseChanged), 6)
	assert.Equal(t, 1, h.machine.GetContext().Matches)
}

func TestClient_Run_Rejected(t *testing.T) {
	h := newHarness(t, testOptions(), newFakeDecider(core.Pass))

	h.conn.push(t, protocol.ConnectionRejected, protocol.ConnectionRejectedPayload{Reason: "lobby full"})

	err := h.wait(t)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "lobby full")
	assert.Equal(t, states.PhaseError, h.machine.CurrentPhase())
	assert.Equal(t, int32(1), h.dialer.dials.Load())
}

func TestClient_Run_ReconnectsAfterDrop(t *testing.T) {
	// Arrange: the first connection breaks, the second is closed normally
	first, second := newFakeConn(), newFakeConn()
	dialer := &fakeDialer{conns: []Conn{first, second}}
	log := &eventLog{}
	machine := states.NewStateMachine(states.NewSessionContext("s1", "bot", testutil.NopLogger()), log)
	client, err := NewClient(testOptions(), dialer, newFakeDecider(core.Pass), machine, log, testutil.NopLogger())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Run(context.Background()) }()

	// Act
	first.push(t, protocol.ConnectionAccepted, nil)
	first.expect(t, protocol.GameStatusRequest)
	require.NoError(t, first.Close())

	second.push(t, protocol.ConnectionAccepted, nil)
	second.expect(t, protocol.GameStatusRequest)
	close(second.in)

	// Assert
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("client did not stop")
	}
	assert.Equal(t, int32(2), dialer.dials.Load())
	assert.Equal(t, states.PhaseLobby, machine.CurrentPhase())

	var path []string
	for _, tr := range machine.GetHistory() {
		path = append(path, tr.To.String())
	}
	assert.Equal(t, []string{"Lobby", "Connecting", "Lobby"}, path)
}

func TestClient_Run_GivesUpAfterMaxReconnects(t *testing.T) {
	opts := testOptions()
	opts.MaxReconnects = 3
	dialer := &fakeDialer{err: errors.New("connection refused")}
	machine := states.NewStateMachine(states.NewSessionContext("s1", "bot", testutil.NopLogger()), nil)
	client, err := NewClient(opts, dialer, newFakeDecider(core.Pass), machine, nil, testutil.NopLogger())
	require.NoError(t, err)

	err = client.Run(context.Background())

	assert.ErrorIs(t, err, ErrTooManyReconnects)
	assert.Equal(t, int32(3), dialer.dials.Load())
}

func TestClient_Run_StopsOnCancel(t *testing.T) {
	h := newHarness(t, testOptions(), newFakeDecider(core.Pass))
	h.join(t)

	h.cancel()

	assert.NoError(t, h.wait(t))
}
