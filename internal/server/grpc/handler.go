package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	pb "github.com/dmitrijs2005/shiftdesk/internal/presencepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {

	return &pb.PingResponse{Status: "OK"}, nil

}

// Heartbeat marks the caller online. Clients send it periodically so that a
// presence flag lost to a crash or suspend heals itself.
func (s *GRPCServer) Heartbeat(ctx context.Context, req *pb.HeartbeatRequest) (*pb.HeartbeatResponse, error) {

	if err := s.setOnline(ctx, true); err != nil {
		return nil, err
	}
	return &pb.HeartbeatResponse{Online: true}, nil

}

func (s *GRPCServer) SetPresence(ctx context.Context, req *pb.SetPresenceRequest) (*pb.SetPresenceResponse, error) {

	if err := s.setOnline(ctx, req.Online); err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "presence updated", "online", req.Online)
	return &pb.SetPresenceResponse{Success: true}, nil

}

func (s *GRPCServer) setOnline(ctx context.Context, online bool) error {
	err := s.presence.SetOnline(ctx, userIDFromContext(ctx), online)
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrUnauthenticated) {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	s.logger.Error(ctx, "presence update failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
