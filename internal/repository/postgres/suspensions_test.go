package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/repository"
)

func newSuspensionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "identity_id", "action", "actor", "reason", "duration",
		"expires_at", "active", "created_at",
	})
}

func TestSuspensionRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSuspensionRepository(mock)

	createdAt := time.Now().UTC()
	expiresAt := createdAt.Add(7 * 24 * time.Hour)
	record := domain.SuspensionRecord{
		ID:         "susp-1",
		IdentityID: "identity-1",
		Action:     domain.SuspensionActionSuspend,
		Actor:      "admin-1",
		Reason:     "listing fraud report",
		Duration:   domain.Suspension7Days,
		ExpiresAt:  &expiresAt,
		Active:     true,
		CreatedAt:  createdAt,
	}

	mock.ExpectExec(`INSERT INTO estate\.suspensions`).
		WithArgs(
			record.ID,
			record.IdentityID,
			record.Action,
			record.Actor,
			record.Reason,
			record.Duration,
			&expiresAt,
			true,
			createdAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Append(context.Background(), record); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSuspensionRepository_ActiveByIdentity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSuspensionRepository(mock)

	createdAt := time.Now().UTC()
	rows := newSuspensionRows().AddRow(
		"susp-1", "identity-1", string(domain.SuspensionActionSuspend), "admin-1",
		"spam listings", string(domain.SuspensionIndefinite), nil, true, createdAt,
	)

	mock.ExpectQuery(`SELECT .*FROM estate\.suspensions`).
		WithArgs(true, "identity-1").
		WillReturnRows(rows)

	record, err := repo.ActiveByIdentity(context.Background(), "identity-1")
	if err != nil {
		t.Fatalf("ActiveByIdentity returned error: %v", err)
	}
	if record.ID != "susp-1" {
		t.Fatalf("expected susp-1, got %s", record.ID)
	}
	if record.ExpiresAt != nil {
		t.Fatal("expected indefinite suspension to carry no expiry")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSuspensionRepository_ActiveByIdentityNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSuspensionRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM estate\.suspensions`).
		WithArgs(true, "identity-1").
		WillReturnRows(newSuspensionRows())

	if _, err := repo.ActiveByIdentity(context.Background(), "identity-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSuspensionRepository_Deactivate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSuspensionRepository(mock)

	mock.ExpectExec(`UPDATE estate\.suspensions`).
		WithArgs(false, true, "identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	count, err := repo.Deactivate(context.Background(), "identity-1")
	if err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deactivated record, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
