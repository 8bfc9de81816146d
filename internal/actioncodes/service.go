// Package actioncodes issues single-use authorization codes that gate
// sensitive operations such as canceling a purchase order after work began.
package actioncodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
	"github.com/angelmondragon/supplyhub-backend/pkg/security"
)

const invalidCodeMessage = "authorization code is invalid or expired"

// Store is the redis surface the service needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	ActionCodeKey(userID, action string) string
}

type codeHasher interface {
	Hash(salt, code string) string
	Matches(salt, candidate, storedHash string) bool
}

// Service issues and consumes action codes.
type Service interface {
	Issue(ctx context.Context, actx actor.Context, action enums.Action) (*Issued, error)
	Consume(ctx context.Context, userID uuid.UUID, action enums.Action, code string) error
}

// Issued reports when the new code stops being accepted.
type Issued struct {
	Action    enums.Action `json:"action"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type service struct {
	store    Store
	hasher   codeHasher
	notifier notifications.Notifier
	logg     *logger.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewService wires the action code service. notifier may be nil in tests
// that only exercise Consume.
func NewService(store Store, hasher codeHasher, notifier notifications.Notifier, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("action code store required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("code hasher required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("action code ttl must be positive")
	}
	return &service{
		store:    store,
		hasher:   hasher,
		notifier: notifier,
		logg:     logg,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue replaces any outstanding code for (user, action) and sends the
// plaintext to the user's own channels.
func (s *service) Issue(ctx context.Context, actx actor.Context, action enums.Action) (*Issued, error) {
	if actx.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown action %q", action))
	}

	code, err := security.GenerateNumericCode(security.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate action code")
	}
	salt, err := security.GenerateSalt()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate action code")
	}

	key := s.store.ActionCodeKey(actx.UserID.String(), action.String())
	if err := s.store.Set(ctx, key, encode(salt, s.hasher.Hash(salt, code)), s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store action code")
	}
	expiresAt := s.now().UTC().Add(s.ttl)

	if s.notifier != nil {
		msg := notifications.ToUser(actx.UserID, enums.NotificationTypeActionCode,
			"Your authorization code",
			fmt.Sprintf("Use the code we sent you to confirm %s. It expires in %d minutes.", strings.ReplaceAll(action.String(), "_", " "), int(s.ttl.Minutes())),
			map[string]any{"action": action.String(), "expires_at": expiresAt},
		)
		msg.Channels = []string{notifications.ChannelSMS, notifications.ChannelEmail}
		msg.Secret = code
		if err := s.notifier.Notify(ctx, msg); err != nil {
			return nil, err
		}
	}
	return &Issued{Action: action, ExpiresAt: expiresAt}, nil
}

// Consume burns the stored code on every attempt, so a wrong guess also
// forces the user to request a new one.
func (s *service) Consume(ctx context.Context, userID uuid.UUID, action enums.Action, code string) error {
	code = strings.TrimSpace(code)
	if userID == uuid.Nil || !action.IsValid() || !security.IsNumericCode(code, security.CodeLength) {
		return pkgerrors.New(pkgerrors.CodeInvalidCode, invalidCodeMessage)
	}
	raw, err := s.store.GetDel(ctx, s.store.ActionCodeKey(userID.String(), action.String()))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return pkgerrors.New(pkgerrors.CodeInvalidCode, invalidCodeMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read action code")
	}
	salt, hash, ok := decode(raw)
	if !ok || !s.hasher.Matches(salt, code, hash) {
		return pkgerrors.New(pkgerrors.CodeInvalidCode, invalidCodeMessage)
	}
	return nil
}

func encode(salt, hash string) string {
	return salt + "$" + hash
}

func decode(raw string) (salt, hash string, ok bool) {
	salt, hash, ok = strings.Cut(raw, "$")
	if !ok || salt == "" || hash == "" {
		return "", "", false
	}
	return salt, hash, true
}
