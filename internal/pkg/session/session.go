package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// Account is the authenticated identity resolved from the session store.
type Account struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type contextKey struct{}

var accountContextKey = contextKey{}

// ContextWithAccount binds the account to the request context. Used by the
// session middlewares and by tests.
func ContextWithAccount(ctx context.Context, acc Account) context.Context {
	return context.WithValue(ctx, accountContextKey, acc)
}

// GetAccountFromCtx resolves the account previously bound by a session
// middleware.
func GetAccountFromCtx(ctx context.Context) (Account, error) {
	acc, ok := ctx.Value(accountContextKey).(Account)
	if !ok {
		return Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "session is not found on this request")
	}

	return acc, nil
}

type Store interface {
	Get(ctx context.Context, sessionID string) (Account, error)
	Set(ctx context.Context, sessionID string, acc Account, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

type redisSessionStore struct {
	logger *logrus.Logger
	rc     *redis.Client
}

func NewRedisSessionStore(logger *logrus.Logger, rc *redis.Client) Store {
	return &redisSessionStore{
		logger: logger,
		rc:     rc,
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Get implements Store.
func (s *redisSessionStore) Get(ctx context.Context, sessionID string) (Account, error) {
	buff, err := s.rc.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "session is expired or revoked")
		}
		s.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting session")
	}

	var acc Account
	if err := json.Unmarshal(buff, &acc); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting session")
	}

	return acc, nil
}

// Set implements Store.
func (s *redisSessionStore) Set(ctx context.Context, sessionID string, acc Account, ttl time.Duration) error {
	buff, _ := json.Marshal(acc)

	if err := s.rc.Set(ctx, sessionKey(sessionID), buff, ttl).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while storing session")
	}

	return nil
}

// Delete implements Store.
func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rc.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while deleting session")
	}

	return nil
}
