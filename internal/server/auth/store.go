// Package auth implements the user registry and the bearer-token session
// table. Both live in mutex-guarded in-memory maps and are persisted to
// users.json / tokens.json in the data directory on every mutation, with
// atomic file replacement.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/dstepanenko/dreamhouse/internal/common"
	"github.com/dstepanenko/dreamhouse/internal/filex"
	"github.com/dstepanenko/dreamhouse/internal/logging"
)

const (
	usersFile  = "users.json"
	tokensFile = "tokens.json"

	// Minimum length of a trimmed username or password, in runes.
	minCredentialLen = 3

	saltSize   = 16
	tokenBytes = 32
)

type userRecord struct {
	PasswordHash string    `json:"password_hash"`
	Salt         string    `json:"salt"`
	Created      time.Time `json:"created"`
}

type tokenRecord struct {
	Username string    `json:"username"`
	Created  time.Time `json:"created"`
}

// Store is the authentication store: username -> credentials plus an
// opaque-token -> username session table. Multiple concurrent tokens per
// user are permitted.
type Store struct {
	mu     sync.Mutex
	dir    string
	users  map[string]userRecord
	tokens map[string]tokenRecord
	logger logging.Logger
}

// Open loads (or initializes) the auth store persisted under dir.
func Open(dir string, logger logging.Logger) (*Store, error) {
	if _, err := filex.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	s := &Store{
		dir:    dir,
		users:  make(map[string]userRecord),
		tokens: make(map[string]tokenRecord),
		logger: logger.With("module", "auth"),
	}
	if err := loadMap(filepath.Join(dir, usersFile), &s.users); err != nil {
		return nil, err
	}
	if err := loadMap(filepath.Join(dir, tokensFile), &s.tokens); err != nil {
		return nil, err
	}
	return s, nil
}

func loadMap[V any](path string, dst *map[string]V) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", common.ErrorStorage, path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", common.ErrorStorage, path, err)
	}
	return nil
}

func (s *Store) persist(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", common.ErrorStorage, name, err)
	}
	if err := filex.WriteFileAtomic(filepath.Join(s.dir, name), data, 0o660); err != nil {
		return fmt.Errorf("%w: writing %s: %v", common.ErrorStorage, name, err)
	}
	return nil
}

// hashPassword derives an argon2id digest from password and salt.
// Parameters follow the argon2 package recommendation for interactive
// logins (time=1, memory=64MB, threads=4).
func hashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}

func validCredential(v string) bool {
	return utf8.RuneCountInString(v) >= minCredentialLen
}

// Register creates a new user. The username and password are trimmed of
// surrounding whitespace first; either being shorter than three characters
// is ErrorInvalidInput, a taken username is ErrorConflict. Only a salted
// argon2id digest of the password is stored.
func (s *Store) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if !validCredential(username) || !validCredential(password) {
		return fmt.Errorf("%w: username and password must be at least %d characters", common.ErrorInvalidInput, minCredentialLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return fmt.Errorf("%w: username %q is taken", common.ErrorConflict, username)
	}

	salt := common.GenerateRandByteArray(saltSize)
	s.users[username] = userRecord{
		PasswordHash: hex.EncodeToString(hashPassword(password, salt)),
		Salt:         hex.EncodeToString(salt),
		Created:      time.Now().UTC(),
	}
	if err := s.persist(usersFile, s.users); err != nil {
		delete(s.users, username)
		return err
	}

	s.logger.Info(ctx, "user registered", "username", username)
	return nil
}

// Login verifies the credentials and, on success, mints and records a new
// session token. Unknown usernames and wrong passwords are equally
// ErrorUnauthorized.
func (s *Store) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		// burn a hash anyway so unknown users cost as much as known ones
		hashPassword(password, common.GenerateRandByteArray(saltSize))
		return "", common.ErrorUnauthorized
	}

	salt, err := hex.DecodeString(u.Salt)
	if err != nil {
		return "", fmt.Errorf("%w: corrupt salt for %q", common.ErrorStorage, username)
	}
	stored, err := hex.DecodeString(u.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("%w: corrupt hash for %q", common.ErrorStorage, username)
	}
	if subtle.ConstantTimeCompare(stored, hashPassword(strings.TrimSpace(password), salt)) != 1 {
		return "", common.ErrorUnauthorized
	}

	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", common.ErrorInternal
	}
	s.tokens[token] = tokenRecord{Username: username, Created: time.Now().UTC()}
	if err := s.persist(tokensFile, s.tokens); err != nil {
		delete(s.tokens, token)
		return "", err
	}

	s.logger.Info(ctx, "user logged in", "username", username)
	return token, nil
}

// Logout destroys the session for token. An unknown token is
// ErrorUnauthorized; logging out twice fails the second time.
func (s *Store) Logout(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return common.ErrorUnauthorized
	}
	delete(s.tokens, token)
	if err := s.persist(tokensFile, s.tokens); err != nil {
		s.tokens[token] = rec
		return err
	}

	s.logger.Info(ctx, "user logged out", "username", rec.Username)
	return nil
}

// Resolve maps a bearer token to its username. It never fails: an unknown
// token resolves to the empty string, which authorizes nothing.
func (s *Store) Resolve(ctx context.Context, token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens[token].Username
}
