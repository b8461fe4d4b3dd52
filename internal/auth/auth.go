package auth

// Authenticator logs users in against a fixed user list.
type Authenticator struct {
	users    Users
	sessions *Sessions
}

// New creates an Authenticator.
func New(users Users, sessions *Sessions) *Authenticator {
	return &Authenticator{users: users, sessions: sessions}
}

// Login verifies credentials and opens a session.
func (a *Authenticator) Login(username, password string) (*Session, error) {
	if err := a.users.Verify(username, password); err != nil {
		return nil, err
	}
	return a.sessions.Create(username), nil
}

// Logout ends the session for token. Unknown tokens are ignored.
func (a *Authenticator) Logout(token string) {
	a.sessions.Remove(token)
}

// Authenticate resolves a bearer token to its session.
func (a *Authenticator) Authenticate(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	return a.sessions.Lookup(token)
}
