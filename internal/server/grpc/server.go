// Package grpc serves the presence service used by clients for liveness
// checks and the self-healing presence heartbeat.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/shiftdesk/internal/logging"
	pb "github.com/dmitrijs2005/shiftdesk/internal/presencepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PresenceUpdater writes the online flag of an account.
// *services.PresenceService implements it.
type PresenceUpdater interface {
	SetOnline(ctx context.Context, accountID string, online bool) error
}

type GRPCServer struct {
	address   string
	presence  PresenceUpdater
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, presence PresenceUpdater, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		presence:  presence,
		jwtSecret: []byte(secretKey),
	}
}

// Run serves until ctx is done and then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	pb.RegisterPresenceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
