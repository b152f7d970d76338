package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// In-memory store fakes for exercising the service state machines
// without a database.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *fakeUserStore) SetEmailVerified(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.EmailVerified = true
	return nil
}

func (s *fakeUserStore) SetMFAEnabled(_ context.Context, userID uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.MFAEnabled = enabled
	if enabled {
		now := time.Now()
		u.MFAEnrolledAt = &now
	} else {
		u.MFAEnrolledAt = nil
	}
	return nil
}

type fakeSecretStore struct {
	mu      sync.Mutex
	secrets map[uuid.UUID]*domain.MFASecret // keyed by user ID
}

func newFakeSecretStore() *fakeSecretStore {
	return &fakeSecretStore{secrets: make(map[uuid.UUID]*domain.MFASecret)}
}

func (s *fakeSecretStore) Upsert(_ context.Context, secret *domain.MFASecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *secret
	s.secrets[secret.UserID] = &copied
	return nil
}

func (s *fakeSecretStore) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.MFASecret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.secrets[userID]
	if !ok {
		return nil, domain.ErrMFANotEnabled
	}
	copied := *sec
	return &copied, nil
}

// confirm activates a pending secret and stamps the accepted code's
// step, mirroring the repository's one-time confirm gate.
func (s *fakeSecretStore) confirm(id uuid.UUID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range s.secrets {
		if sec.ID == id {
			if sec.ConfirmedAt != nil {
				return domain.ErrMFANotPending
			}
			now := time.Now()
			sec.ConfirmedAt = &now
			used := usedAt
			sec.LastUsedAt = &used
			return nil
		}
	}
	return domain.ErrMFANotPending
}

// UpdateLastUsed only moves last_used_at forward, like the repository's
// compare-and-swap update.
func (s *fakeSecretStore) UpdateLastUsed(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range s.secrets {
		if sec.ID == id {
			if sec.LastUsedAt != nil && !usedAt.After(*sec.LastUsedAt) {
				return domain.ErrInvalidMFACode
			}
			used := usedAt
			sec.LastUsedAt = &used
			return nil
		}
	}
	return domain.ErrInvalidMFACode
}

func (s *fakeSecretStore) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, userID)
	return nil
}

// fakeEnrollmentCommitter applies the confirm transition against the
// fake stores. failErr simulates a commit that rolls back: when set,
// nothing is mutated.
type fakeEnrollmentCommitter struct {
	secrets *fakeSecretStore
	codes   *fakeRecoveryCodeStore
	users   *fakeUserStore
	failErr error
}

func (c *fakeEnrollmentCommitter) CommitEnrollment(ctx context.Context, userID, secretID uuid.UUID, usedAt time.Time, codes []*domain.MFARecoveryCode) error {
	if c.failErr != nil {
		return c.failErr
	}
	if err := c.secrets.confirm(secretID, usedAt); err != nil {
		return err
	}
	if err := c.codes.DeleteAllByUserID(ctx, userID); err != nil {
		return err
	}
	if err := c.codes.CreateBatch(ctx, codes); err != nil {
		return err
	}
	return c.users.SetMFAEnabled(ctx, userID, true)
}

type fakeRecoveryCodeStore struct {
	mu    sync.Mutex
	codes []*domain.MFARecoveryCode
}

func newFakeRecoveryCodeStore() *fakeRecoveryCodeStore {
	return &fakeRecoveryCodeStore{}
}

func (s *fakeRecoveryCodeStore) CreateBatch(_ context.Context, codes []*domain.MFARecoveryCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range codes {
		copied := *c
		s.codes = append(s.codes, &copied)
	}
	return nil
}

func (s *fakeRecoveryCodeStore) Consume(_ context.Context, userID uuid.UUID, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.UserID == userID && c.CodeHash == codeHash && c.UsedAt == nil {
			now := time.Now()
			c.UsedAt = &now
			return nil
		}
	}
	return domain.ErrInvalidRecoveryCode
}

func (s *fakeRecoveryCodeStore) CountUnused(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.codes {
		if c.UserID == userID && c.UsedAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *fakeRecoveryCodeStore) DeleteAllByUserID(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.codes[:0]
	for _, c := range s.codes {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	s.codes = kept
	return nil
}

type fakePendingSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.PendingMFASession // keyed by token hash
}

func newFakePendingSessionStore() *fakePendingSessionStore {
	return &fakePendingSessionStore{sessions: make(map[string]*domain.PendingMFASession)}
}

func (s *fakePendingSessionStore) Create(_ context.Context, session *domain.PendingMFASession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.TokenHash] = &copied
	return nil
}

func (s *fakePendingSessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*domain.PendingMFASession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, domain.ErrMFASessionExpired
	}
	copied := *sess
	return &copied, nil
}

func (s *fakePendingSessionStore) Consume(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			if sess.ConsumedAt != nil {
				return domain.ErrMFASessionExpired
			}
			now := time.Now()
			sess.ConsumedAt = &now
			return nil
		}
	}
	return domain.ErrMFASessionExpired
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens []*domain.VerificationToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{}
}

func (s *fakeTokenStore) Create(_ context.Context, token *domain.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens = append(s.tokens, &copied)
	return nil
}

func (s *fakeTokenStore) GetByTokenHash(_ context.Context, tokenHash string, kind domain.VerificationTokenKind) (*domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == tokenHash && t.Kind == kind {
			copied := *t
			return &copied, nil
		}
	}
	return nil, domain.ErrVerificationTokenNotFound
}

func (s *fakeTokenStore) MarkConsumed(_ context.Context, tokenID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.ID == tokenID {
			if t.ConsumedAt != nil {
				return domain.ErrVerificationTokenConsumed
			}
			now := time.Now()
			t.ConsumedAt = &now
			return nil
		}
	}
	return domain.ErrVerificationTokenNotFound
}

func (s *fakeTokenStore) RevokeActiveTokens(_ context.Context, userID uuid.UUID, kind domain.VerificationTokenKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, t := range s.tokens {
		if t.UserID == userID && t.Kind == kind && t.ConsumedAt == nil {
			t.ConsumedAt = &now
		}
	}
	return nil
}

type fakeTenantStore struct {
	tenants map[string]*domain.Tenant // keyed by slug
}

func (s *fakeTenantStore) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	t, ok := s.tenants[slug]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

type fakeClientStore struct {
	clients map[uuid.UUID]*domain.Client // keyed by tenant ID
}

func (s *fakeClientStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Client, error) {
	for _, c := range s.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.ErrClientNotFound
}

func (s *fakeClientStore) GetByTenantID(_ context.Context, tenantID uuid.UUID) (*domain.Client, error) {
	c, ok := s.clients[tenantID]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return c, nil
}

type fakeSessionRevoker struct {
	mu      sync.Mutex
	revoked []uuid.UUID
}

func (s *fakeSessionRevoker) RevokeAllSessions(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, userID)
	return nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	activation []string // raw tokens dispatched
	recovery   []string
	done       chan struct{} // signalled per send
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 16)}
}

func (n *fakeNotifier) SendActivationToken(_, token string) error {
	n.mu.Lock()
	n.activation = append(n.activation, token)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *fakeNotifier) SendRecoveryToken(_, token string) error {
	n.mu.Lock()
	n.recovery = append(n.recovery, token)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

// waitForSend blocks until a dispatch lands or the timeout hits,
// returning the most recent recovery token.
func (n *fakeNotifier) waitForRecoveryToken() (string, bool) {
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		return "", false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.recovery) == 0 {
		return "", false
	}
	return n.recovery[len(n.recovery)-1], true
}

type fakePasswordVerifier struct {
	password string
}

func (v *fakePasswordVerifier) VerifyUserPassword(_ context.Context, _ uuid.UUID, password string) error {
	if password != v.password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type fakeAuthenticator struct {
	email    string
	password string
	userID   uuid.UUID
	locked   bool
}

func (a *fakeAuthenticator) Authenticate(_ context.Context, email, password string) (uuid.UUID, error) {
	if a.locked {
		return uuid.Nil, domain.ErrAccountLocked
	}
	if email != a.email || password != a.password {
		return uuid.Nil, domain.ErrInvalidCredentials
	}
	return a.userID, nil
}

type fakeSessionIssuer struct {
	mu     sync.Mutex
	issued []IssueSessionOpts
}

func (i *fakeSessionIssuer) IssueSession(_ context.Context, userID uuid.UUID, opts IssueSessionOpts) (*domain.TokenPair, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.issued = append(i.issued, opts)
	return &domain.TokenPair{
		AccessToken:  "access-" + userID.String(),
		RefreshToken: "refresh-" + userID.String(),
		TokenType:    "Bearer",
		ExpiresIn:    900,
	}, nil
}

type fakeIdentityChecker struct {
	expected []string
}

func (c *fakeIdentityChecker) VerifyAnswers(_ context.Context, _ uuid.UUID, answers []string) error {
	if len(answers) != len(c.expected) {
		return errors.New("identity check failed")
	}
	for i := range answers {
		if answers[i] != c.expected[i] {
			return errors.New("identity check failed")
		}
	}
	return nil
}

func testCipher() *SecretCipher {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := NewSecretCipher(key)
	if err != nil {
		panic(err)
	}
	return c
}
