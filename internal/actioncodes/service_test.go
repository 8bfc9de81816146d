package actioncodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
	"github.com/angelmondragon/supplyhub-backend/pkg/security"
)

type fakeStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) GetDel(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	delete(f.values, key)
	return v, nil
}

func (f *fakeStore) ActionCodeKey(userID, action string) string {
	return "action_code:" + action + ":" + userID
}

type captureNotifier struct {
	messages []notifications.Message
}

func (c *captureNotifier) Notify(ctx context.Context, msg notifications.Message) error {
	c.messages = append(c.messages, msg)
	return nil
}

func newTestService(t *testing.T, store Store, notifier notifications.Notifier) Service {
	t.Helper()
	hasher, err := security.NewCodeHasher("action-code-test-key-0123456789")
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	svc, err := NewService(store, hasher, notifier, 10*time.Minute, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestIssueThenConsumeOnce(t *testing.T) {
	store := newFakeStore()
	notifier := &captureNotifier{}
	svc := newTestService(t, store, notifier)
	user := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleSupplier}

	issued, err := svc.Issue(context.Background(), user, enums.ActionCancelOrder)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry")
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.messages))
	}
	code := notifier.messages[0].Secret
	if !security.IsNumericCode(code, security.CodeLength) {
		t.Fatalf("unexpected code %q", code)
	}
	for _, v := range store.values {
		if v == code {
			t.Fatalf("plaintext code stored")
		}
	}
	key := store.ActionCodeKey(user.UserID.String(), enums.ActionCancelOrder.String())
	if store.ttls[key] != 10*time.Minute {
		t.Fatalf("unexpected ttl %v", store.ttls[key])
	}

	if err := svc.Consume(context.Background(), user.UserID, enums.ActionCancelOrder, code); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	err = svc.Consume(context.Background(), user.UserID, enums.ActionCancelOrder, code)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidCode) {
		t.Fatalf("expected reuse to fail, got %v", err)
	}
}

func TestConsumeWrongCodeBurnsIt(t *testing.T) {
	store := newFakeStore()
	notifier := &captureNotifier{}
	svc := newTestService(t, store, notifier)
	user := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	if _, err := svc.Issue(context.Background(), user, enums.ActionCancelOrder); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := notifier.messages[0].Secret
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if err := svc.Consume(context.Background(), user.UserID, enums.ActionCancelOrder, wrong); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if err := svc.Consume(context.Background(), user.UserID, enums.ActionCancelOrder, code); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidCode) {
		t.Fatalf("expected burned code to fail, got %v", err)
	}
}

func TestConsumeRejectsMalformedAndOtherUsers(t *testing.T) {
	store := newFakeStore()
	notifier := &captureNotifier{}
	svc := newTestService(t, store, notifier)
	owner := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleSupplier}

	if _, err := svc.Issue(context.Background(), owner, enums.ActionCancelOrder); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := notifier.messages[0].Secret

	for _, candidate := range []string{"", "12345", "abcdef", "1234567"} {
		if err := svc.Consume(context.Background(), owner.UserID, enums.ActionCancelOrder, candidate); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidCode) {
			t.Fatalf("candidate %q: expected invalid code, got %v", candidate, err)
		}
	}
	if err := svc.Consume(context.Background(), uuid.New(), enums.ActionCancelOrder, code); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidCode) {
		t.Fatalf("expected other user to fail, got %v", err)
	}
	if err := svc.Consume(context.Background(), owner.UserID, enums.ActionCancelOrder, code); err != nil {
		t.Fatalf("owner code should survive other users' attempts: %v", err)
	}
}

func TestIssueValidationAndStoreFailures(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)

	if _, err := svc.Issue(context.Background(), actor.Context{}, enums.ActionCancelOrder); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	user := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleSupplier}
	if _, err := svc.Issue(context.Background(), user, "wipe_everything"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	store.err = errors.New("connection refused")
	if _, err := svc.Issue(context.Background(), user, enums.ActionCancelOrder); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if err := svc.Consume(context.Background(), user.UserID, enums.ActionCancelOrder, "123456"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
