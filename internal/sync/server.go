package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	gosync "sync"

	"medialib/internal/logging"
)

var log = logging.New("tcp-sync")

// Message is one line of the sync protocol in either direction.
type Message struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	MsgWelcome = "welcome"
	MsgAuth    = "auth"
	MsgAuthOK  = "auth_ok"
	MsgError   = "error"
)

// Server accepts line-delimited JSON TCP clients. A client sends
// {"type":"auth","token":"..."} and then receives its library events.
type Server struct {
	Addr   string
	Hub    *Hub
	Tokens TokenVerifier

	mu gosync.Mutex
	ln net.Listener
	wg gosync.WaitGroup
}

func NewServer(addr string, hub *Hub, tokens TokenVerifier) *Server {
	return &Server{Addr: addr, Hub: hub, Tokens: tokens}
}

// Run listens until ctx is cancelled or Close is called.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Info("listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			log.Warn("accept: %v", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, c net.Conn) {
	s.Hub.Add(c)
	log.Debug("client connected: %s", c.RemoteAddr())
	defer func() {
		s.Hub.Remove(c)
		log.Debug("client disconnected: %s", c.RemoteAddr())
	}()

	send(c, Message{Type: MsgWelcome, Message: "send {\"type\":\"auth\",\"token\":\"...\"}"})

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var m Message
		if err := json.Unmarshal([]byte(line), &m); err != nil || m.Type != MsgAuth {
			send(c, Message{Type: MsgError, Message: "expected auth message"})
			continue
		}
		userID, err := s.Tokens.VerifyToken(ctx, m.Token)
		if err != nil {
			send(c, Message{Type: MsgError, Message: "invalid token"})
			continue
		}
		s.Hub.Authenticate(c, userID)
		send(c, Message{Type: MsgAuthOK, UserID: userID})
	}
}

// Close stops accepting and disconnects all clients.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	err := ln.Close()
	_ = s.Hub.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func send(c net.Conn, m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = writeLine(c, append(b, '\n'))
}
