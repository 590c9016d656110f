package ports

// PasswordHasher turns plaintext passwords into one-way digests and checks
// candidates against them.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(plain, digest string) bool
}

// TokenIssuer mints and verifies signed bearer tokens carrying a user id.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
	Verify(token string) (int64, error)
}
