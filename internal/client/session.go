package client

import "sync"

// MaxRecent bounds the remembered query history.
const MaxRecent = 20

// Session is the signed-in state shared by commands: the bearer token and the
// most recent search queries. It is safe for concurrent use and can be built
// directly in tests without touching the config file.
type Session struct {
	mu       sync.Mutex
	token    string
	username string
	recent   []string
}

func NewSession(token, username string, recent []string) *Session {
	s := &Session{token: token, username: username}
	for _, q := range recent {
		s.Remember(q)
	}
	return s
}

// SessionFromConfig copies the persisted state out of cfg.
func SessionFromConfig(cfg *Config) *Session {
	return NewSession(cfg.Token, cfg.Username, cfg.Recent)
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Session) SignIn(token, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.username = token, username
}

// Clear forgets the token and the query history.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.username = "", ""
	s.recent = nil
}

// Remember records q as the newest query. Repeats move to the front.
func (s *Session) Remember(q string) {
	if q == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []string{q}
	for _, r := range s.recent {
		if r != q {
			out = append(out, r)
		}
	}
	if len(out) > MaxRecent {
		out = out[:MaxRecent]
	}
	s.recent = out
}

// Recent returns the queries newest first.
func (s *Session) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recent...)
}

// Store writes the session back into cfg.
func (s *Session) Store(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.Token = s.token
	cfg.Username = s.username
	cfg.Recent = append([]string(nil), s.recent...)
}
