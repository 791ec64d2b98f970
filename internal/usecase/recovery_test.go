package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/infra/security"
)

func newRecoveryFixture(t *testing.T, identities ...*domain.Identity) (*RecoveryService, *stubIdentityRepo, *stubOTPStore, *stubSender) {
	t.Helper()
	repo := newStubIdentityRepo(identities...)
	otps := newStubOTPStore()
	sender := newStubSender()
	service := NewRecoveryService(testConfig(), repo, otps, sender, newStubSigner(), zaptest.NewLogger(t))
	return service, repo, otps, sender
}

func TestRequestCodeDoesNotDiscloseEligibility(t *testing.T) {
	user := &domain.Identity{ID: "u-1", Email: "user@example.com", Role: domain.RoleUser}
	service, _, otps, sender := newRecoveryFixture(t, user)

	// Unknown email and non-admin email both succeed silently.
	if err := service.RequestCode(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}
	if err := service.RequestCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}

	if len(sender.codes) != 0 {
		t.Fatal("expected no codes dispatched for ineligible emails")
	}
	if _, err := otps.Fetch(context.Background(), recoveryPurpose, "user@example.com"); err == nil {
		t.Fatal("expected no stored code for a non-admin identity")
	}
}

func TestRequestCodeForAdmin(t *testing.T) {
	admin := fullAdmin("admin-1")
	admin.Email = "admin@example.com"
	service, _, otps, sender := newRecoveryFixture(t, admin)

	if err := service.RequestCode(context.Background(), "Admin@Example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}

	code := sender.codes["admin@example.com"]
	if code == "" {
		t.Fatal("expected a dispatched recovery code")
	}

	record, err := otps.Fetch(context.Background(), recoveryPurpose, "admin@example.com")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if record.Code != security.HashToken(code) {
		t.Fatal("expected stored code to be hashed")
	}
}

func TestVerifyCodeIssuesSession(t *testing.T) {
	admin := fullAdmin("admin-1")
	admin.Email = "admin@example.com"
	service, _, _, sender := newRecoveryFixture(t, admin)

	if err := service.RequestCode(context.Background(), "admin@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}
	code := sender.codes["admin@example.com"]

	if _, err := service.VerifyCode(context.Background(), "admin@example.com", "999999"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for wrong code, got %v", err)
	}

	result, err := service.VerifyCode(context.Background(), "admin@example.com", code)
	if err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}
	if result.Identity.PasswordHash != "" {
		t.Fatal("expected password hash stripped")
	}

	// The code is single-use.
	if _, err := service.VerifyCode(context.Background(), "admin@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode after consumption, got %v", err)
	}
}

func TestVerifyCodeCompletesOnboarding(t *testing.T) {
	admin := fullAdmin("admin-1")
	admin.Email = "admin@example.com"
	admin.Admin.IsActivated = false
	admin.Admin.Access = domain.AdminAccessNone

	service, repo, _, sender := newRecoveryFixture(t, admin)

	if err := service.RequestCode(context.Background(), "admin@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}

	result, err := service.VerifyCode(context.Background(), "admin@example.com", sender.codes["admin@example.com"])
	if err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}
	if repo.activateCalls != 1 {
		t.Fatalf("expected one activation, got %d", repo.activateCalls)
	}

	stored, err := repo.GetByID(context.Background(), "admin-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if !stored.Admin.IsActivated {
		t.Fatal("expected activation persisted")
	}
	if stored.Admin.Access != domain.AdminAccessLimited {
		t.Fatalf("expected limited access after recovery, got %s", stored.Admin.Access)
	}
}

func TestVerifyCodeRespectsSuspension(t *testing.T) {
	admin := fullAdmin("admin-1")
	admin.Email = "admin@example.com"
	admin.Suspended = true

	service, _, _, sender := newRecoveryFixture(t, admin)

	if err := service.RequestCode(context.Background(), "admin@example.com"); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}

	if _, err := service.VerifyCode(context.Background(), "admin@example.com", sender.codes["admin@example.com"]); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}
}

func TestVerifyCodeAttemptCap(t *testing.T) {
	admin := fullAdmin("admin-1")
	admin.Email = "admin@example.com"
	service, _, otps, _ := newRecoveryFixture(t, admin)

	if _, err := otps.Store(context.Background(), recoveryPurpose, "admin@example.com", security.HashToken("424242"), 10*time.Minute); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := service.VerifyCode(context.Background(), "admin@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i+1, err)
		}
	}

	if _, err := service.VerifyCode(context.Background(), "admin@example.com", "424242"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}
