package testutil

// DefaultSessionToken is used when a scenario does not name one.
const DefaultSessionToken = "test-session-default"

// FixedSessionToken generates the same session token every time.
//
// A scenario run with the same token derives the same event identities, so
// its trace is byte-identical across runs.
//
// Thread-safety: FixedSessionToken is immutable and safe for concurrent use.
type FixedSessionToken struct {
	token string
}

// NewFixedSessionToken creates a generator for token.
// If token is empty, Generate returns DefaultSessionToken.
func NewFixedSessionToken(token string) *FixedSessionToken {
	if token == "" {
		token = DefaultSessionToken
	}
	return &FixedSessionToken{token: token}
}

// Generate returns the fixed token.
func (g *FixedSessionToken) Generate() string {
	return g.token
}
