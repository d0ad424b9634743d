package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newManager() *JWTManager {
	return NewJWTManager(DefaultJWTConfig("test-secret"))
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newManager()

	token, err := m.GenerateToken("alice")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "supportai", claims.Issuer)
}

func TestJWTManager_Expired(t *testing.T) {
	m := newManager()

	token, err := m.GenerateTokenWithExpiry("alice", -time.Minute)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := NewJWTManager(DefaultJWTConfig("other")).GenerateToken("alice")
	require.NoError(t, err)

	_, err = newManager().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_MissingUserID(t *testing.T) {
	m := newManager()
	_, err := m.GenerateToken("")
	assert.ErrorIs(t, err, ErrInvalidClaims)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x", Issuer: "supportai"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWTManager_ForeignIssuer(t *testing.T) {
	m := newManager()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
		UserID:           "alice",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	m := newManager()
	token, err := m.GenerateToken("bob")
	require.NoError(t, err)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		w.Write([]byte(userID))
	}))

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"valid", "Bearer " + token, http.StatusOK, "bob"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "bob"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/search_ai", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestUnaryInterceptor(t *testing.T) {
	m := newManager()
	token, err := m.GenerateToken("carol")
	require.NoError(t, err)

	interceptor := m.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/supportai.v1.AnswerService/Answer"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		userID, _ := UserIDFromContext(ctx)
		return userID, nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	resp, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "carol", resp)

	resp, err = interceptor(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "", resp)

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer broken"))
	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
