package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/infra/security"
)

func newRegistrationFixture(t *testing.T, identities ...*domain.Identity) (*RegistrationService, *stubIdentityRepo, *stubOTPStore, *stubSender, *stubPublisher) {
	t.Helper()
	repo := newStubIdentityRepo(identities...)
	otps := newStubOTPStore()
	sender := newStubSender()
	publisher := &stubPublisher{}
	service := NewRegistrationService(testConfig(), repo, otps, sender, publisher, zaptest.NewLogger(t))
	return service, repo, otps, sender, publisher
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	service, _, _, _, _ := newRegistrationFixture(t)

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{name: "bad email", input: RegisterInput{Email: "not-an-email", Password: testPassword, Role: "user"}},
		{name: "weak password", input: RegisterInput{Email: "a@example.com", Password: "password", Role: "user"}},
		{name: "admin role", input: RegisterInput{Email: "a@example.com", Password: testPassword, Role: "admin"}},
		{name: "superAdmin role", input: RegisterInput{Email: "a@example.com", Password: testPassword, Role: "superAdmin"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Register(context.Background(), tc.input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	existing := &domain.Identity{ID: "id-1", Email: "taken@example.com", Role: domain.RoleUser}
	service, _, _, _, _ := newRegistrationFixture(t, existing)

	input := RegisterInput{Email: "Taken@Example.com", Password: testPassword, Role: "user"}
	if _, err := service.Register(context.Background(), input); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterUserSuccess(t *testing.T) {
	service, repo, otps, sender, publisher := newRegistrationFixture(t)

	identity, err := service.Register(context.Background(), RegisterInput{
		Email:    "Buyer@Example.com",
		Password: testPassword,
		Role:     "user",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if identity.Email != "buyer@example.com" {
		t.Fatalf("expected normalized email, got %s", identity.Email)
	}
	if identity.PasswordHash != "" {
		t.Fatal("expected password hash stripped from result")
	}
	if identity.Agent != nil {
		t.Fatal("expected no agent profile for a plain user")
	}

	stored, err := repo.GetByEmail(context.Background(), "buyer@example.com")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if stored.PasswordHash == "" {
		t.Fatal("expected stored identity to keep its hash")
	}
	if stored.Verified {
		t.Fatal("expected new identity to be unverified")
	}

	// A hashed verification code was stored and the raw code dispatched.
	record, err := otps.Fetch(context.Background(), verifyPurpose, "buyer@example.com")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	code := sender.codes["buyer@example.com"]
	if code == "" {
		t.Fatal("expected a dispatched verification code")
	}
	if record.Code != security.HashToken(code) {
		t.Fatal("expected stored code to be the hash of the dispatched code")
	}
	if record.Code == code {
		t.Fatal("raw code must not be stored")
	}

	if len(publisher.registered) != 1 {
		t.Fatalf("expected one registered event, got %d", len(publisher.registered))
	}
}

func TestRegisterAgentAttachesProfile(t *testing.T) {
	service, repo, _, _, _ := newRegistrationFixture(t)

	license := "LIC-7"
	identity, err := service.Register(context.Background(), RegisterInput{
		Email:         "agent@example.com",
		Password:      testPassword,
		Role:          "Agent",
		Agency:        "Haven Realty",
		LicenseNumber: &license,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if identity.Role != domain.RoleAgent {
		t.Fatalf("expected agent role, got %s", identity.Role)
	}

	stored, err := repo.GetByID(context.Background(), identity.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored.Agent == nil || stored.Agent.Agency != "Haven Realty" {
		t.Fatal("expected stored agent profile")
	}
}

func TestVerifyEmail(t *testing.T) {
	identity := &domain.Identity{ID: "id-1", Email: "buyer@example.com", Role: domain.RoleUser}
	service, repo, otps, _, _ := newRegistrationFixture(t, identity)

	if _, err := otps.Store(context.Background(), verifyPurpose, "buyer@example.com", security.HashToken("424242"), testConfig().Recovery.CodeTTL); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	if err := service.VerifyEmail(context.Background(), "buyer@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for wrong code, got %v", err)
	}

	record, err := otps.Fetch(context.Background(), verifyPurpose, "buyer@example.com")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if record.Attempts != 1 {
		t.Fatalf("expected attempt counted, got %d", record.Attempts)
	}

	if err := service.VerifyEmail(context.Background(), "Buyer@Example.com", "424242"); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if !stored.Verified {
		t.Fatal("expected identity marked verified")
	}

	// The code is single-use.
	if err := service.VerifyEmail(context.Background(), "buyer@example.com", "424242"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode after consumption, got %v", err)
	}
}

func TestVerifyEmailAttemptCap(t *testing.T) {
	identity := &domain.Identity{ID: "id-1", Email: "buyer@example.com", Role: domain.RoleUser}
	service, _, otps, _, _ := newRegistrationFixture(t, identity)

	if _, err := otps.Store(context.Background(), verifyPurpose, "buyer@example.com", security.HashToken("424242"), testConfig().Recovery.CodeTTL); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := service.VerifyEmail(context.Background(), "buyer@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i+1, err)
		}
	}

	// Even the right code is refused once the cap is hit.
	if err := service.VerifyEmail(context.Background(), "buyer@example.com", "424242"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}
