package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
)

func TestUserDocument_ClearedResetFieldsAreOmitted(t *testing.T) {
	u := &domain.User{ID: 3, Username: "alice", Email: "alice@example.com", Role: domain.RoleCustomer}
	_, _ = u.IssueResetToken(time.Now(), time.Minute)
	u.ClearResetToken()

	raw, err := bson.Marshal(toUserDocument(u))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"password_reset_token", "password_reset_expires"} {
		if _, ok := m[key]; ok {
			t.Fatalf("expected %s to be omitted from replacement document", key)
		}
	}
	if m["_id"] != int64(3) || m["role"] != "CUSTOMER" {
		t.Fatalf("unexpected document: %v", m)
	}
}

func TestUserDocument_KeepsResetFields(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	u := &domain.User{ID: 3}
	raw, _ := u.IssueResetToken(now, time.Minute)

	got := toUserDocument(u).toDomain()
	if !got.ResetTokenMatches(raw, now) {
		t.Fatalf("reset token lost in document conversion")
	}
}

func TestDuplicateUserError(t *testing.T) {
	usernameErr := errors.New(`E11000 duplicate key error collection: clinic.users index: users_username_unique dup key: { username: "alice" }`)
	emailErr := errors.New(`E11000 duplicate key error collection: clinic.users index: users_email_unique dup key: { email: "a@example.com" }`)

	if got := duplicateUserError(usernameErr); !errors.Is(got, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", got)
	}
	if got := duplicateUserError(emailErr); !errors.Is(got, domain.ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", got)
	}
}
