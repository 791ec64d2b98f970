package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/repository"
)

func newIdentityFixture(t *testing.T, identities ...*domain.Identity) (*IdentityService, *stubIdentityRepo) {
	t.Helper()
	repo := newStubIdentityRepo(identities...)
	svc := NewIdentityService(repo, zaptest.NewLogger(t))
	return svc, repo
}

func TestListRequiresUsersView(t *testing.T) {
	svc, _ := newIdentityFixture(t, activeUser(t, "user-1", "user1@example.com"))

	plain := &domain.Identity{ID: "user-2", Role: domain.RoleUser}
	if _, _, err := svc.List(context.Background(), plain, ListIdentitiesInput{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for plain user, got %v", err)
	}

	if _, _, err := svc.List(context.Background(), nil, ListIdentitiesInput{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for anonymous, got %v", err)
	}
}

func TestListFiltersByRoleAndStripsHashes(t *testing.T) {
	user := activeUser(t, "user-1", "user1@example.com")
	agent := &domain.Identity{
		ID:           "agent-1",
		Email:        "agent@example.com",
		PasswordHash: hashFor(t, testPassword),
		Role:         domain.RoleAgent,
	}
	svc, _ := newIdentityFixture(t, user, agent)

	admin := fullAdmin("admin-1")

	identities, total, err := svc.List(context.Background(), admin, ListIdentitiesInput{Role: "agent"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(identities) != 1 {
		t.Fatalf("expected one agent, got %d (total %d)", len(identities), total)
	}
	if identities[0].ID != "agent-1" {
		t.Fatalf("expected agent-1, got %s", identities[0].ID)
	}
	if identities[0].PasswordHash != "" {
		t.Fatal("expected password hash to be stripped")
	}
}

func TestGetReturnsSanitizedCopy(t *testing.T) {
	user := activeUser(t, "user-1", "user1@example.com")
	svc, repo := newIdentityFixture(t, user)

	got, err := svc.Get(context.Background(), fullAdmin("admin-1"), "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PasswordHash != "" {
		t.Fatal("expected password hash to be stripped")
	}

	stored, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.PasswordHash == "" {
		t.Fatal("sanitizing the response must not erase the stored hash")
	}
}

func TestGetUnknownIdentity(t *testing.T) {
	svc, _ := newIdentityFixture(t)

	if _, err := svc.Get(context.Background(), fullAdmin("admin-1"), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRequiresUsersDelete(t *testing.T) {
	svc, _ := newIdentityFixture(t, activeUser(t, "user-1", "user1@example.com"))

	limited := fullAdmin("admin-1")
	limited.Admin.Permissions = []domain.Permission{domain.PermUsersView}

	if err := svc.Delete(context.Background(), limited, "user-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden without users.delete, got %v", err)
	}
}

func TestDeleteRefusesSelf(t *testing.T) {
	admin := fullAdmin("admin-1")
	svc, _ := newIdentityFixture(t, admin)

	if err := svc.Delete(context.Background(), admin, "admin-1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self-delete, got %v", err)
	}
}

func TestDeleteMarksIdentity(t *testing.T) {
	user := activeUser(t, "user-1", "user1@example.com")
	svc, repo := newIdentityFixture(t, user)

	if err := svc.Delete(context.Background(), fullAdmin("admin-1"), "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.Deleted {
		t.Fatal("expected identity to be marked deleted")
	}
}
