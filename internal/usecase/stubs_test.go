package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/repository"
)

// stubIdentityRepo is an in-memory port.IdentityRepository keyed by id and email.
type stubIdentityRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.Identity
	failLookup error

	failedAttemptCalls int
	resetCalls         int
	activateCalls      int
}

func newStubIdentityRepo(identities ...*domain.Identity) *stubIdentityRepo {
	repo := &stubIdentityRepo{byID: make(map[string]*domain.Identity)}
	for _, identity := range identities {
		repo.byID[identity.ID] = identity
	}
	return repo
}

func (r *stubIdentityRepo) Create(_ context.Context, identity domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == identity.Email {
			return repository.ErrConflict
		}
	}
	clone := identity
	r.byID[identity.ID] = &clone
	return nil
}

func (r *stubIdentityRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLookup != nil {
		return nil, r.failLookup
	}
	identity, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *identity
	return &clone, nil
}

func (r *stubIdentityRepo) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLookup != nil {
		return nil, r.failLookup
	}
	for _, identity := range r.byID {
		if identity.Email == email {
			clone := *identity
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubIdentityRepo) List(_ context.Context, filter port.IdentityFilter) ([]domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Identity
	for _, identity := range r.byID {
		if filter.Role != "" && identity.Role != filter.Role {
			continue
		}
		out = append(out, *identity)
	}
	return out, nil
}

func (r *stubIdentityRepo) Count(_ context.Context, filter port.IdentityFilter) (int, error) {
	identities, _ := r.List(context.Background(), filter)
	return len(identities), nil
}

func (r *stubIdentityRepo) RecordFailedAttempt(_ context.Context, id string, threshold int, lockFor time.Duration) (port.LockoutResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedAttemptCalls++
	identity, ok := r.byID[id]
	if !ok {
		return port.LockoutResult{}, repository.ErrNotFound
	}
	identity.FailedAttempts++
	if identity.FailedAttempts >= threshold {
		until := time.Now().UTC().Add(lockFor)
		identity.LockedUntil = &until
	}
	return port.LockoutResult{
		FailedAttempts: identity.FailedAttempts,
		LockedUntil:    identity.LockedUntil,
	}, nil
}

func (r *stubIdentityRepo) ResetFailedAttempts(_ context.Context, id string, loginAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCalls++
	identity, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.FailedAttempts = 0
	identity.LockedUntil = nil
	at := loginAt
	identity.LastLogin = &at
	return nil
}

func (r *stubIdentityRepo) SetSuspended(_ context.Context, id string, suspended bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.Suspended = suspended
	return nil
}

func (r *stubIdentityRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.byID[id]
	if !ok || identity.Deleted {
		return repository.ErrNotFound
	}
	identity.Deleted = true
	return nil
}

func (r *stubIdentityRepo) MarkVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.Verified = true
	return nil
}

func (r *stubIdentityRepo) ActivateAdmin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activateCalls++
	identity, ok := r.byID[id]
	if !ok || identity.Admin == nil {
		return repository.ErrNotFound
	}
	identity.Admin.IsActivated = true
	identity.Admin.IsActive = true
	if identity.Admin.Access == domain.AdminAccessNone {
		identity.Admin.Access = domain.AdminAccessLimited
	}
	return nil
}

var _ port.IdentityRepository = (*stubIdentityRepo)(nil)

// stubSuspensionRepo keeps suspension records in memory.
type stubSuspensionRepo struct {
	mu      sync.Mutex
	records []domain.SuspensionRecord
}

func (r *stubSuspensionRepo) Append(_ context.Context, record domain.SuspensionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *stubSuspensionRepo) ActiveByIdentity(_ context.Context, identityID string) (*domain.SuspensionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].IdentityID == identityID && r.records[i].Active {
			clone := r.records[i]
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubSuspensionRepo) Deactivate(_ context.Context, identityID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for i := range r.records {
		if r.records[i].IdentityID == identityID && r.records[i].Active {
			r.records[i].Active = false
			count++
		}
	}
	return count, nil
}

func (r *stubSuspensionRepo) History(_ context.Context, identityID string) ([]domain.SuspensionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SuspensionRecord
	for _, record := range r.records {
		if record.IdentityID == identityID {
			out = append(out, record)
		}
	}
	return out, nil
}

var _ port.SuspensionRepository = (*stubSuspensionRepo)(nil)

// stubPublisher records published events instead of sending them anywhere.
type stubPublisher struct {
	mu         sync.Mutex
	registered []domain.IdentityRegisteredEvent
	suspended  []domain.AccountSuspendedEvent
	lifted     []domain.SuspensionLiftedEvent
	appealed   []domain.SuspensionAppealedEvent
	locked     []domain.AccountLockedEvent
}

func (p *stubPublisher) PublishIdentityRegistered(_ context.Context, event domain.IdentityRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *stubPublisher) PublishAccountSuspended(_ context.Context, event domain.AccountSuspendedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.suspended = append(p.suspended, event)
	return nil
}

func (p *stubPublisher) PublishSuspensionLifted(_ context.Context, event domain.SuspensionLiftedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lifted = append(p.lifted, event)
	return nil
}

func (p *stubPublisher) PublishSuspensionAppealed(_ context.Context, event domain.SuspensionAppealedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appealed = append(p.appealed, event)
	return nil
}

func (p *stubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, event)
	return nil
}

var _ port.EventPublisher = (*stubPublisher)(nil)

// stubSigner issues predictable tokens of the form "token:<id>:<role>".
type stubSigner struct {
	verifyErr error
	claims    map[string]domain.SessionClaim
}

func newStubSigner() *stubSigner {
	return &stubSigner{claims: make(map[string]domain.SessionClaim)}
}

func (s *stubSigner) Sign(claim domain.SessionClaim) (string, time.Time, error) {
	token := fmt.Sprintf("token:%s:%s", claim.IdentityID, claim.Role)
	s.claims[token] = claim
	return token, time.Now().UTC().Add(24 * time.Hour), nil
}

func (s *stubSigner) Verify(raw string) (domain.SessionClaim, error) {
	if s.verifyErr != nil {
		return domain.SessionClaim{}, s.verifyErr
	}
	claim, ok := s.claims[raw]
	if !ok {
		return domain.SessionClaim{}, fmt.Errorf("unknown token")
	}
	return claim, nil
}

var _ TokenIssuer = (*stubSigner)(nil)

// stubOTPStore keeps one-time codes in memory.
type stubOTPStore struct {
	mu      sync.Mutex
	records map[string]*port.OTPRecord
}

func newStubOTPStore() *stubOTPStore {
	return &stubOTPStore{records: make(map[string]*port.OTPRecord)}
}

func (s *stubOTPStore) key(purpose, identifier string) string {
	return purpose + ":" + identifier
}

func (s *stubOTPStore) Store(_ context.Context, purpose, identifier, codeHash string, ttl time.Duration) (*port.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	record := &port.OTPRecord{
		Purpose:    purpose,
		Identifier: identifier,
		Code:       codeHash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	s.records[s.key(purpose, identifier)] = record
	return record, nil
}

func (s *stubOTPStore) Fetch(_ context.Context, purpose, identifier string) (*port.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[s.key(purpose, identifier)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *stubOTPStore) IncrementAttempts(_ context.Context, purpose, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[s.key(purpose, identifier)]
	if !ok {
		return 0, repository.ErrNotFound
	}
	record.Attempts++
	return record.Attempts, nil
}

func (s *stubOTPStore) Delete(_ context.Context, purpose, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, s.key(purpose, identifier))
	return nil
}

var _ port.OTPStore = (*stubOTPStore)(nil)

// stubSender records dispatched codes.
type stubSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func newStubSender() *stubSender {
	return &stubSender{codes: make(map[string]string)}
}

func (s *stubSender) SendVerificationCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	return nil
}

var _ port.VerificationSender = (*stubSender)(nil)
