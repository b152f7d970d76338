package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

func newActivationFixture(t *testing.T) (*ActivationService, *fakeUserStore, *fakeNotifier, *domain.User) {
	t.Helper()
	user := &domain.User{
		ID:    uuid.New(),
		Email: "dave@example.com",
	}
	users := newFakeUserStore(user)
	notifier := newFakeNotifier()
	service := NewActivationService(
		0,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		users,
		newFakeTokenStore(),
		notifier,
	)
	return service, users, notifier, user
}

func TestActivation_RoundTrip(t *testing.T) {
	service, users, notifier, user := newActivationFixture(t)
	ctx := context.Background()

	if err := service.SendActivation(ctx, user.ID); err != nil {
		t.Fatalf("SendActivation() error = %v", err)
	}

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("No activation token dispatched")
	}
	notifier.mu.Lock()
	token := notifier.activation[len(notifier.activation)-1]
	notifier.mu.Unlock()

	if err := service.Activate(ctx, token); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	got, _ := users.GetByID(ctx, user.ID)
	if !got.EmailVerified {
		t.Error("Email not marked verified")
	}

	// The token burns on use.
	if err := service.Activate(ctx, token); !errors.Is(err, domain.ErrVerificationTokenConsumed) {
		t.Errorf("Activate() replay error = %v, want ErrVerificationTokenConsumed", err)
	}
}

func TestActivation_AlreadyVerified(t *testing.T) {
	service, users, _, user := newActivationFixture(t)
	ctx := context.Background()

	_ = users.SetEmailVerified(ctx, user.ID)

	if err := service.SendActivation(ctx, user.ID); !errors.Is(err, domain.ErrEmailAlreadyVerified) {
		t.Errorf("SendActivation() error = %v, want ErrEmailAlreadyVerified", err)
	}
}

func TestActivation_GarbageToken(t *testing.T) {
	service, _, _, _ := newActivationFixture(t)

	if err := service.Activate(context.Background(), "bogus"); !errors.Is(err, domain.ErrVerificationTokenInvalid) {
		t.Errorf("Activate() error = %v, want ErrVerificationTokenInvalid", err)
	}
}

func TestActivation_ExpiredToken(t *testing.T) {
	service, _, notifier, user := newActivationFixture(t)
	ctx := context.Background()

	if err := service.SendActivation(ctx, user.ID); err != nil {
		t.Fatalf("SendActivation() error = %v", err)
	}
	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("No activation token dispatched")
	}
	notifier.mu.Lock()
	token := notifier.activation[len(notifier.activation)-1]
	notifier.mu.Unlock()

	service.now = func() time.Time { return time.Now().Add(DefaultActivationTokenTTL + time.Hour) }

	if err := service.Activate(ctx, token); !errors.Is(err, domain.ErrVerificationTokenExpired) {
		t.Errorf("Activate() error = %v, want ErrVerificationTokenExpired", err)
	}
}
