package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/events"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/states"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported next to the overall ("") status
const ServiceName = "tankbattle.Agent"

var ErrAlreadyStarted = errors.New("health server already started")

// HealthOptions configures the health endpoint
type HealthOptions struct {
	Host             string
	Port             int
	EnableReflection bool
	// GracePeriod is how long Stop waits with NOT_SERVING before stopping
	GracePeriod time.Duration
}

// HealthServer exposes the standard gRPC health service for the agent
// process. The status follows the session phase: the agent serves while it
// is connected to a game server.
type HealthServer struct {
	opts   HealthOptions
	server *grpc.Server
	health *health.Server
	logger zerolog.Logger

	mu      sync.Mutex
	lis     net.Listener
	serving bool
	done    chan struct{}
}

// NewHealthServer creates a health server in the NOT_SERVING state
func NewHealthServer(opts HealthOptions, logger zerolog.Logger) *HealthServer {
	hs := &HealthServer{
		opts:   opts,
		health: health.NewServer(),
		logger: logger.With().Str("component", "HealthServer").Logger(),
	}

	hs.server = grpc.NewServer(
		grpc.ChainUnaryInterceptor(hs.loggingInterceptor, hs.recoveryInterceptor),
	)
	grpc_health_v1.RegisterHealthServer(hs.server, hs.health)
	if opts.EnableReflection {
		reflection.Register(hs.server)
		hs.logger.Info().Msg("gRPC reflection enabled")
	}

	hs.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return hs
}

// Start listens on the configured address and serves in the background
func (hs *HealthServer) Start() (net.Addr, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", hs.opts.Host, hs.opts.Port))
	if err != nil {
		return nil, fmt.Errorf("listen for health checks: %w", err)
	}
	if err := hs.Serve(lis); err != nil {
		lis.Close()
		return nil, err
	}
	return lis.Addr(), nil
}

// Serve serves on lis in the background
func (hs *HealthServer) Serve(lis net.Listener) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.lis != nil {
		return ErrAlreadyStarted
	}
	hs.lis = lis
	hs.done = make(chan struct{})

	go func() {
		defer close(hs.done)
		if err := hs.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			hs.logger.Error().Err(err).Msg("Health server stopped serving")
		}
	}()

	hs.logger.Info().Str("address", lis.Addr().String()).Msg("Health server listening")
	return nil
}

// SetServing flips the reported status
func (hs *HealthServer) SetServing(serving bool) {
	hs.mu.Lock()
	changed := hs.serving != serving
	hs.serving = serving
	hs.mu.Unlock()

	if !changed {
		return
	}
	if serving {
		hs.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		hs.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	hs.logger.Debug().Bool("serving", serving).Msg("Health status changed")
}

// Serving reports the current status
func (hs *HealthServer) Serving() bool {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.serving
}

// Stop reports NOT_SERVING, waits the grace period, then stops gracefully.
// Watchers see the final status before their streams end.
func (hs *HealthServer) Stop() {
	hs.SetServing(false)
	hs.health.Shutdown()

	hs.mu.Lock()
	started := hs.lis != nil
	done := hs.done
	hs.mu.Unlock()

	if started && hs.opts.GracePeriod > 0 {
		time.Sleep(hs.opts.GracePeriod)
	}

	hs.logger.Info().Msg("Gracefully stopping health server")
	hs.server.GracefulStop()
	if done != nil {
		<-done
	}
}

func (hs *HealthServer) setStatus(st grpc_health_v1.HealthCheckResponse_ServingStatus) {
	hs.health.SetServingStatus("", st)
	hs.health.SetServingStatus(ServiceName, st)
}

// ID implements events.Subscriber
func (hs *HealthServer) ID() string {
	return "health_reporter"
}

// InterestedIn implements events.Subscriber
func (hs *HealthServer) InterestedIn(eventType string) bool {
	return eventType == events.TypePhaseChanged
}

// HandleEvent implements events.Subscriber
func (hs *HealthServer) HandleEvent(event events.Event) {
	e, ok := event.(*events.PhaseChangedEvent)
	if !ok {
		return
	}
	phase, err := states.ParsePhase(e.ToPhase)
	if err != nil {
		hs.logger.Warn().Err(err).Msg("Ignoring phase change")
		return
	}
	hs.SetServing(servingIn(phase))
}

// servingIn reports whether the agent counts as healthy in phase
func servingIn(phase states.Phase) bool {
	switch phase {
	case states.PhaseConnecting, states.PhaseError:
		return false
	default:
		return true
	}
}

func (hs *HealthServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			code = st.Code()
		}
	}

	hs.logger.Debug().
		Str("method", info.FullMethod).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("gRPC call")

	return resp, err
}

func (hs *HealthServer) recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			hs.logger.Error().
				Str("method", info.FullMethod).
				Interface("panic", r).
				Msg("Recovered from panic in gRPC handler")
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}
