package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	nextID  int64
	updates int
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		r.nextID++
		if u.ID == 0 {
			u.ID = r.nextID
		}
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.PasswordResetExpires != nil {
		exp := *u.PasswordResetExpires
		clone.PasswordResetExpires = &exp
	}
	return &clone
}

func (r *stubUserRepo) get(id int64) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, domain.ErrEmailInUse
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = r.nextID
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByResetToken(_ context.Context, digest string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PasswordResetToken == digest && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, filter ports.UserFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.User
	for id := int64(1); id <= r.nextID; id++ {
		u, ok := r.users[id]
		if !ok || (filter.Role != "" && u.Role != filter.Role) {
			continue
		}
		all = append(all, cloneUser(u))
	}
	total := int64(len(all))
	if filter.Skip >= total {
		return nil, total, nil
	}
	end := filter.Skip + filter.Limit
	if end > total {
		end = total
	}
	return all[filter.Skip:end], total, nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, u := range r.users {
		if u.ID != user.ID && u.Email == user.Email {
			return domain.ErrEmailInUse
		}
	}
	r.users[user.ID] = cloneUser(user)
	r.updates++
	return nil
}

func (r *stubUserRepo) ConsumeResetToken(_ context.Context, id int64, digest, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.PasswordResetToken != digest || u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(now) {
		return domain.ErrInvalidResetToken
	}
	u.PasswordHash = passwordHash
	u.ClearResetToken()
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// stubHasher keeps tests fast; the real hashers are covered in the security package.
type stubHasher struct{}

func (stubHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (stubHasher) Matches(plain, digest string) bool { return digest == "hashed:"+plain }

type stubTokens struct {
	issued []int64
}

func (t *stubTokens) Issue(userID int64) (string, error) {
	t.issued = append(t.issued, userID)
	return "token-for-user", nil
}

func (t *stubTokens) Verify(string) (int64, error) { return 0, domain.ErrInvalidToken }

type stubNotifier struct {
	err  error
	sent []ports.Message
}

func (n *stubNotifier) Send(_ context.Context, msg ports.Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

// stubThrottle behaves like a SET NX window: the first Allow per user wins
// until Release is called.
type stubThrottle struct {
	denyAll  bool
	err      error
	claimed  map[int64]bool
	calls    int
	releases int
}

func (t *stubThrottle) Allow(_ context.Context, userID int64) (bool, error) {
	t.calls++
	if t.err != nil {
		return false, t.err
	}
	if t.denyAll || t.claimed[userID] {
		return false, nil
	}
	if t.claimed == nil {
		t.claimed = make(map[int64]bool)
	}
	t.claimed[userID] = true
	return true, nil
}

func (t *stubThrottle) Release(_ context.Context, userID int64) error {
	t.releases++
	delete(t.claimed, userID)
	return nil
}

// countingHasher records how often Matches runs.
type countingHasher struct {
	stubHasher
	matches int
}

func (h *countingHasher) Matches(plain, digest string) bool {
	h.matches++
	return h.stubHasher.Matches(plain, digest)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func seededAlice() *domain.User {
	return &domain.User{
		ID:           1,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:password123",
		DisplayName:  "Alice",
		Role:         domain.RoleCustomer,
	}
}

func newTestAuthService(repo *stubUserRepo, notifier *stubNotifier, throttle ports.ResetThrottle) *AuthService {
	svc := NewAuthService(repo, stubHasher{}, &stubTokens{}, notifier, throttle, 0, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

// lastToken extracts the raw reset token from the most recent email.
func lastToken(t *testing.T, n *stubNotifier) string {
	t.Helper()
	if len(n.sent) == 0 {
		t.Fatalf("expected an email to be sent")
	}
	text := n.sent[len(n.sent)-1].Text
	return text[strings.LastIndex(text, " ")+1:]
}

// ---------------------------------------------------------------------------
// SignIn
// ---------------------------------------------------------------------------

func TestAuthService_SignIn_Success(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	tokens := &stubTokens{}
	svc := NewAuthService(repo, stubHasher{}, tokens, &stubNotifier{}, nil, 0, zerolog.Nop())

	res, err := svc.SignIn(context.Background(), "  Alice@Example.com ", "password123")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if res.Token != "token-for-user" {
		t.Fatalf("unexpected token %q", res.Token)
	}
	if len(tokens.issued) != 1 || tokens.issued[0] != 1 {
		t.Fatalf("expected token issued for user 1, got %v", tokens.issued)
	}
	if res.User.PasswordHash != "" {
		t.Fatalf("password hash leaked in sign-in result")
	}
}

func TestAuthService_SignIn_InvalidCredentials(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	svc := newTestAuthService(repo, &stubNotifier{}, nil)

	cases := map[string][2]string{
		"unknown email":  {"ghost@example.com", "password123"},
		"wrong password": {"alice@example.com", "nope"},
		"empty password": {"alice@example.com", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.SignIn(context.Background(), tc[0], tc[1]); !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ForgotPassword / VerifyResetToken / ResetPassword
// ---------------------------------------------------------------------------

func TestAuthService_SignIn_UnknownEmailStillChecksPassword(t *testing.T) {
	hasher := &countingHasher{}
	svc := NewAuthService(newStubUserRepo(seededAlice()), hasher, &stubTokens{}, &stubNotifier{}, nil, 0, zerolog.Nop())

	if _, err := svc.SignIn(context.Background(), "nobody@example.com", "password123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if hasher.matches != 1 {
		t.Fatalf("expected one password comparison for an unknown email, got %d", hasher.matches)
	}
}

func TestAuthService_ResetPassword_CountsCharacters(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)

	if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	raw := lastToken(t, notifier)

	// four characters, twelve bytes
	var ve *domain.ValidationError
	if _, err := svc.ResetPassword(context.Background(), raw, "日本語字"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := svc.ResetPassword(context.Background(), raw, "日本語の新しい暗号"); err != nil {
		t.Fatalf("expected eight characters to be accepted, got %v", err)
	}
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)

	if err := svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if len(notifier.sent) != 0 || repo.updates != 0 {
		t.Fatalf("unknown email must have no side effects (sent=%d updates=%d)", len(notifier.sent), repo.updates)
	}
}

func TestAuthService_ForgotPassword_IssuesToken(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)

	if err := svc.ForgotPassword(context.Background(), "ALICE@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}

	msg := notifier.sent[0]
	if msg.To != "alice@example.com" || msg.Subject != "Password Reset Token" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	raw := lastToken(t, notifier)
	stored := repo.get(1)
	if stored.PasswordResetToken == raw {
		t.Fatalf("raw token persisted")
	}
	if stored.PasswordResetToken != domain.HashResetToken(raw) {
		t.Fatalf("stored digest does not match emailed token")
	}
	if !stored.PasswordResetExpires.Equal(testNow.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", stored.PasswordResetExpires)
	}
}

func TestAuthService_ForgotPassword_DeliveryFailureRollsBack(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{err: errors.New("smtp down")}
	svc := newTestAuthService(repo, notifier, nil)

	err := svc.ForgotPassword(context.Background(), "alice@example.com")
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if repo.get(1).HasResetToken() {
		t.Fatalf("reset token should be cleared after delivery failure")
	}
}

func TestAuthService_ForgotPassword_Throttle(t *testing.T) {
	t.Run("denied", func(t *testing.T) {
		repo := newStubUserRepo(seededAlice())
		notifier := &stubNotifier{}
		svc := newTestAuthService(repo, notifier, &stubThrottle{denyAll: true})

		if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
			t.Fatalf("expected nil when throttled, got %v", err)
		}
		if len(notifier.sent) != 0 || repo.get(1).HasResetToken() {
			t.Fatalf("throttled request must not issue a token")
		}
	})

	t.Run("store error fails open", func(t *testing.T) {
		repo := newStubUserRepo(seededAlice())
		notifier := &stubNotifier{}
		svc := newTestAuthService(repo, notifier, &stubThrottle{err: errors.New("redis down")})

		if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if len(notifier.sent) != 1 {
			t.Fatalf("expected email despite throttle error")
		}
	})
}

func TestAuthService_ForgotPassword_ThrottleWindow(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	throttle := &stubThrottle{}
	svc := newTestAuthService(repo, notifier, throttle)

	for i := 0; i < 2; i++ {
		if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one email inside the window, got %d", len(notifier.sent))
	}
	if throttle.releases != 0 {
		t.Fatalf("a delivered email must keep its window, got %d releases", throttle.releases)
	}
}

func TestAuthService_ForgotPassword_RetryAfterDeliveryFailure(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{err: errors.New("smtp down")}
	throttle := &stubThrottle{}
	svc := newTestAuthService(repo, notifier, throttle)

	if err := svc.ForgotPassword(context.Background(), "alice@example.com"); !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if throttle.releases != 1 {
		t.Fatalf("expected the window to be released, got %d releases", throttle.releases)
	}

	notifier.err = nil
	if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected the retry to send an email, got %d", len(notifier.sent))
	}
	raw := lastToken(t, notifier)
	if repo.get(1).PasswordResetToken != domain.HashResetToken(raw) {
		t.Fatalf("retry did not store a reset token")
	}
}

func TestAuthService_VerifyResetToken(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)
	_ = svc.ForgotPassword(context.Background(), "alice@example.com")
	raw := lastToken(t, notifier)

	user, err := svc.VerifyResetToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("VerifyResetToken returned error: %v", err)
	}
	if user.ID != 1 || user.HasResetToken() || user.PasswordHash != "" {
		t.Fatalf("unexpected verified user: %+v", user)
	}
	if !repo.get(1).HasResetToken() {
		t.Fatalf("verification must not consume the token")
	}

	if _, err := svc.VerifyResetToken(context.Background(), "not-a-token"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken for unknown token, got %v", err)
	}

	svc.now = func() time.Time { return testNow.Add(11 * time.Minute) }
	if _, err := svc.VerifyResetToken(context.Background(), raw); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken for expired token, got %v", err)
	}
}

func TestAuthService_ResetPassword_SingleUse(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)
	_ = svc.ForgotPassword(context.Background(), "alice@example.com")
	raw := lastToken(t, notifier)

	if _, err := svc.ResetPassword(context.Background(), raw, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	stored := repo.get(1)
	if stored.PasswordHash != "hashed:brand-new-pass" {
		t.Fatalf("password not updated: %q", stored.PasswordHash)
	}
	if stored.HasResetToken() {
		t.Fatalf("reset token should be cleared")
	}

	if _, err := svc.ResetPassword(context.Background(), raw, "another-pass"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected second use to fail, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "alice@example.com", "password123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "alice@example.com", "brand-new-pass"); err != nil {
		t.Fatalf("new password should work, got %v", err)
	}
}

func TestAuthService_ResetPassword_ShortPassword(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)
	_ = svc.ForgotPassword(context.Background(), "alice@example.com")
	raw := lastToken(t, notifier)

	_, err := svc.ResetPassword(context.Background(), raw, "short")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !repo.get(1).HasResetToken() {
		t.Fatalf("rejected reset must leave the token live")
	}
}

func TestAuthService_ResetPassword_SupersededToken(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)

	_ = svc.ForgotPassword(context.Background(), "alice@example.com")
	first := lastToken(t, notifier)
	_ = svc.ForgotPassword(context.Background(), "alice@example.com")
	second := lastToken(t, notifier)

	if _, err := svc.ResetPassword(context.Background(), first, "brand-new-pass"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected superseded token to fail, got %v", err)
	}
	if _, err := svc.ResetPassword(context.Background(), second, "brand-new-pass"); err != nil {
		t.Fatalf("latest token should work, got %v", err)
	}
}

func TestAuthService_ResetPassword_ConcurrentRedemption(t *testing.T) {
	repo := newStubUserRepo(seededAlice())
	notifier := &stubNotifier{}
	svc := newTestAuthService(repo, notifier, nil)
	_ = svc.ForgotPassword(context.Background(), "alice@example.com")
	raw := lastToken(t, notifier)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ResetPassword(context.Background(), raw, "brand-new-pass"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", successes)
	}
}

// ---------------------------------------------------------------------------
// ChangeEmail
// ---------------------------------------------------------------------------

func TestAuthService_ChangeEmail(t *testing.T) {
	bob := &domain.User{ID: 2, Username: "bob", Email: "bob@example.com", Role: domain.RoleStaff}

	cases := []struct {
		name     string
		userID   int64
		newEmail string
		wantErr  error
	}{
		{"user not found", 99, "x@example.com", domain.ErrUserNotFound},
		{"same email", 1, " ALICE@example.com", domain.ErrEmailUnchanged},
		{"email in use", 1, "bob@example.com", domain.ErrEmailInUse},
		{"success", 1, "Alice.New@Example.com", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubUserRepo(seededAlice(), bob)
			svc := newTestAuthService(repo, &stubNotifier{}, nil)

			user, err := svc.ChangeEmail(context.Background(), tc.userID, tc.newEmail)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ChangeEmail returned error: %v", err)
			}
			if user.Email != "alice.new@example.com" || repo.get(1).Email != "alice.new@example.com" {
				t.Fatalf("email not updated: %+v", user)
			}
		})
	}
}
