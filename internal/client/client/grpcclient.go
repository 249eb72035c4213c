package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	pb "github.com/dmitrijs2005/shiftdesk/internal/presencepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenRefresher exchanges an expired access token for a fresh one.
type TokenRefresher func(ctx context.Context, expiredToken string) (string, error)

// GRPCClient calls the presence service.
type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.PresenceClient
	refresher   TokenRefresher
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func accessTokenFrom(ctx context.Context) string {
	md, _ := metadata.FromOutgoingContext(ctx)
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

// refreshInterceptor retries a call once with a fresh token when the server
// reports the access token as expired and a refresher is configured.
func (s *GRPCClient) refreshInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || s.refresher == nil {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	old := accessTokenFrom(ctx)
	if old == "" {
		return err
	}

	fresh, rerr := s.refresher(ctx, old)
	if rerr != nil {
		return rerr
	}

	return invoker(withAccessToken(ctx, fresh), method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL lazily; the connection is established on
// the first call. refresher may be nil. Extra dial options are appended to
// the defaults.
func NewGRPCClient(endpointURL string, refresher TokenRefresher, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, refresher: refresher}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.refreshInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(c.endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewPresenceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Heartbeat(ctx context.Context, accessToken string) error {
	_, err := s.client.Heartbeat(withAccessToken(ctx, accessToken), &pb.HeartbeatRequest{})
	return s.mapError(err)
}

func (s *GRPCClient) SetPresence(ctx context.Context, accessToken string, online bool) error {
	_, err := s.client.SetPresence(withAccessToken(ctx, accessToken), &pb.SetPresenceRequest{Online: online})
	return s.mapError(err)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %s", common.ErrUnauthenticated, st.Message())
	case codes.PermissionDenied:
		return ErrUnauthorized
	case codes.DeadlineExceeded:
		return common.ErrTimeout
	case codes.Unavailable:
		return ErrUnavailable
	case codes.Canceled:
		return errors.Join(context.Canceled, err)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
