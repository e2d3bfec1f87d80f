package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dstepanenko/dreamhouse/internal/common"
	"github.com/dstepanenko/dreamhouse/internal/logging"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	s, err := Open(dir, log)
	require.NoError(t, err)
	return s, dir
}

func TestRegister_Validation(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "password"},
		{"short password", "alice", "pw"},
		{"whitespace-padded short username", "  a  ", "password"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Register(ctx, tt.username, tt.password)
			require.ErrorIs(t, err, common.ErrorInvalidInput)
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "alice", "secret"))
	require.ErrorIs(t, s.Register(ctx, "alice", "other"), common.ErrorConflict)
}

func TestRegister_NeverStoresPlaintext(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, s.Register(context.Background(), "alice", "hunter222"))

	raw, err := os.ReadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "hunter222")

	var users map[string]userRecord
	require.NoError(t, json.Unmarshal(raw, &users))
	require.Contains(t, users, "alice")
	require.NotEmpty(t, users["alice"].Salt)
	require.NotEmpty(t, users["alice"].PasswordHash)
}

func TestLogin_Success(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "alice", "secret"))

	token, err := s.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	// 32 random bytes hex encoded
	require.Len(t, token, 64)

	require.Equal(t, "alice", s.Resolve(ctx, token))
}

func TestLogin_MintsDistinctTokens(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "alice", "secret"))

	t1, err := s.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	t2, err := s.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	require.NotEqual(t, t1, t2)
	// both sessions stay valid
	require.Equal(t, "alice", s.Resolve(ctx, t1))
	require.Equal(t, "alice", s.Resolve(ctx, t2))
}

func TestLogin_Unauthorized(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "alice", "secret"))

	_, err := s.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = s.Login(ctx, "nobody", "secret")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogout(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "alice", "secret"))
	token, err := s.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, token))
	require.Empty(t, s.Resolve(ctx, token))

	// not idempotent: the second logout fails
	require.ErrorIs(t, s.Logout(ctx, token), common.ErrorUnauthorized)
}

func TestResolve_UnknownToken(t *testing.T) {
	s, _ := newStore(t)
	require.Empty(t, s.Resolve(context.Background(), "deadbeef"))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "alice", "secret"))
	token, err := s.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	reopened, err := Open(dir, log)
	require.NoError(t, err)

	require.Equal(t, "alice", reopened.Resolve(ctx, token))
	_, err = reopened.Login(ctx, "alice", "secret")
	require.NoError(t, err)
}

func TestRegister_TrimsCredentials(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "  alice  ", "  secret  "))

	token, err := s.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	require.Equal(t, "alice", s.Resolve(ctx, token))
	require.False(t, strings.Contains(token, " "))
}
