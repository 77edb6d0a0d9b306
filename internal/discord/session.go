// ABOUTME: Per-invocation session state threaded through gateway calls
// ABOUTME: Value semantics, replace-one-field helpers instead of mutation

package discord

import "net/http"

// Credentials is the login identifier/secret pair used for browser
// extraction when no token is available.
type Credentials struct {
	Email    string
	Password string
}

// Set reports whether both halves of the pair are present.
func (c Credentials) Set() bool {
	return c.Email != "" && c.Password != ""
}

// Session carries the state of one tool invocation: the current bearer
// token, the extraction credentials, the headless flag, and the HTTP
// client once one has been opened. Sessions are values; every step that
// changes the token or connection returns a new Session. A Session is
// created per invocation and closed at the end of it regardless of
// outcome.
type Session struct {
	token    string
	creds    Credentials
	headless bool
	http     *http.Client
}

// NewSession builds the starting state for one invocation. token may be
// empty; it is only ever caller-supplied here or filled in later by the
// resolution chain, never guessed.
func NewSession(token string, creds Credentials, headless bool) Session {
	return Session{token: token, creds: creds, headless: headless}
}

// Token returns the current bearer token, or "" when unresolved.
func (s Session) Token() string {
	return s.token
}

// WithToken returns a copy of the session carrying tok.
func (s Session) WithToken(tok string) Session {
	s.token = tok
	return s
}

// WithHTTPClient returns a copy of the session carrying client.
func (s Session) WithHTTPClient(client *http.Client) Session {
	s.http = client
	return s
}

// Close tears down the open HTTP connection, if any. Safe on the zero
// value and safe to call more than once.
func (s Session) Close() {
	if s.http != nil {
		s.http.CloseIdleConnections()
	}
}
