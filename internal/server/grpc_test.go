package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/practice2025/supportai/internal/auth"
	"github.com/practice2025/supportai/internal/service"
)

func startTestGRPC(t *testing.T, cfg GRPCServerConfig) (*fakeAnswerer, *grpc.ClientConn) {
	t.Helper()
	answerer := &fakeAnswerer{}
	srv, err := NewGRPCServer(cfg, answerer)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return answerer, conn
}

func TestNewGRPCServer_RequiresAnswerer(t *testing.T) {
	_, err := NewGRPCServer(GRPCServerConfig{}, nil)
	assert.Error(t, err)
}

func TestGRPC_Answer(t *testing.T) {
	answerer, conn := startTestGRPC(t, GRPCServerConfig{})

	resp, err := NewAnswerClient(conn).Answer(context.Background(), service.AnswerRequest{Query: "printer", UserID: "alice"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "answer to printer", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "doc-1", resp.Sources[0].ID)
	assert.Equal(t, 2.0, resp.Sources[0].Score)
	assert.Equal(t, "alice", answerer.last().UserID)
}

func TestGRPC_AnswerUserFromToken(t *testing.T) {
	manager := auth.NewJWTManager(auth.DefaultJWTConfig("test-secret"))
	answerer, conn := startTestGRPC(t, GRPCServerConfig{JWT: manager})
	client := NewAnswerClient(conn)

	token, err := manager.GenerateToken("bob")
	require.NoError(t, err)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
	_, err = client.Answer(ctx, service.AnswerRequest{Query: "vpn"})
	require.NoError(t, err)
	assert.Equal(t, "bob", answerer.last().UserID)

	ctx = metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
	_, err = client.Answer(ctx, service.AnswerRequest{Query: "vpn"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPC_Health(t *testing.T) {
	_, conn := startTestGRPC(t, GRPCServerConfig{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: AnswerServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	interceptor := recoveryUnaryInterceptor(discardLogger())
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: AnswerMethod},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		})
	assert.Equal(t, codes.Internal, status.Code(err))
}
