// Package fakegw runs an in-process gateway for tests: it answers the
// startup negotiation and lets tests script or inject reply frames.
package fakegw

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/quantrail/gatewire/internal/protocol"
)

const apiPrefix = "API\x00"

// Handler maps one client request to zero or more reply payloads.
type Handler func(kind protocol.OutgoingKind, payload []byte) [][]byte

// Server is a single-client-at-a-time fake gateway. It accepts sequential
// connections so reconnect flows can be exercised.
type Server struct {
	ServerVersion int
	ConnTime      string
	NextOrderID   int64
	Accounts      string
	Handle        Handler

	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	conn     net.Conn
	requests [][]byte
	cancels  map[protocol.OutgoingKind]int
	closed   bool
}

func New() *Server {
	return &Server{
		ServerVersion: 150,
		ConnTime:      "20240309 14:30:00 EST",
		NextOrderID:   90,
		Accounts:      "DU12345",
		cancels:       make(map[protocol.OutgoingKind]int),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.ln = ln
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) Addr() (host string, port int) {
	addr := s.ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	s.ln.Close()
	s.wg.Wait()
}

// DropConnection severs the active client socket, simulating a mid-session
// network failure. The server keeps accepting.
func (s *Server) DropConnection() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Send injects one reply payload on the active connection.
func (s *Server) Send(payload []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("fakegw: no active connection")
	}
	return protocol.WriteFrame(conn, payload)
}

// CancelCount reports how many cancel frames of kind arrived.
func (s *Server) CancelCount(kind protocol.OutgoingKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels[kind]
}

// Requests returns a copy of every post-handshake payload received.
func (s *Server) Requests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()
		s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	prefix := make([]byte, len(apiPrefix))
	if _, err := io.ReadFull(conn, prefix); err != nil || string(prefix) != apiPrefix {
		return
	}
	if _, err := protocol.ReadFrame(conn, protocol.DefaultLimits()); err != nil {
		return
	}
	ack := strconv.Itoa(s.ServerVersion) + "\x00" + s.ConnTime + "\x00"
	if err := protocol.WriteFrame(conn, []byte(ack)); err != nil {
		return
	}

	for {
		payload, err := protocol.ReadFrame(conn, protocol.DefaultLimits())
		if err != nil {
			return
		}
		r := protocol.NewReader(payload)
		kindRaw, err := r.Long()
		if err != nil {
			continue
		}
		kind := protocol.OutgoingKind(kindRaw)

		s.mu.Lock()
		s.requests = append(s.requests, payload)
		if isCancel(kind) {
			s.cancels[kind]++
		}
		s.mu.Unlock()

		if kind == protocol.OutStartAPI {
			s.writeStartup(conn)
			continue
		}
		if s.Handle == nil {
			continue
		}
		for _, reply := range s.Handle(kind, payload) {
			if err := protocol.WriteFrame(conn, reply); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeStartup(conn net.Conn) {
	nextID := fmt.Sprintf("%d\x001\x00%d\x00", protocol.InNextValidID, s.NextOrderID)
	accts := fmt.Sprintf("%d\x001\x00%s\x00", protocol.InManagedAccts, s.Accounts)
	_ = protocol.WriteFrame(conn, []byte(nextID))
	_ = protocol.WriteFrame(conn, []byte(accts))
}

func isCancel(kind protocol.OutgoingKind) bool {
	switch kind {
	case protocol.OutCancelMktData, protocol.OutCancelMktDepth,
		protocol.OutCancelHistoricalDat, protocol.OutCancelPositions,
		protocol.OutCancelPositionsMult, protocol.OutCancelAcctSummary,
		protocol.OutCancelTickByTick, protocol.OutCancelOrder:
		return true
	}
	return false
}
