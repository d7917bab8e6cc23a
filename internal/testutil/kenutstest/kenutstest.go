// Package kenutstest provides scripted loopback KENUTS servers for tests.
package kenutstest

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Handler answers one connection after the request frame was read.
// The connection is closed when the handler returns.
type Handler func(conn net.Conn, frame []byte)

// Server is a loopback TCP listener running a Handler per connection
type Server struct {
	Listener net.Listener
	Addr     string
	Port     int

	handler Handler
	wg      sync.WaitGroup

	mu     sync.Mutex
	frames [][]byte
}

// NewServer starts a server on 127.0.0.1 with a random port; it is closed on test cleanup
func NewServer(t testing.TB, h Handler) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("kenutstest: listen: %v", err)
	}

	s := &Server{
		Listener: ln,
		Addr:     ln.Addr().String(),
		Port:     ln.Addr().(*net.TCPAddr).Port,
		handler:  h,
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()

			frame := readFrame(conn)
			s.mu.Lock()
			s.frames = append(s.frames, frame)
			s.mu.Unlock()

			s.handler(conn, frame)
		}()
	}
}

// readFrame reads request lines up to and including the first empty line
func readFrame(conn net.Conn) []byte {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	var buf bytes.Buffer
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		buf.Write(line)
		if err != nil || len(bytes.TrimSpace(line)) == 0 {
			return buf.Bytes()
		}
	}
}

// Close stops accepting and waits for running handlers
func (s *Server) Close() {
	s.Listener.Close()
	s.wg.Wait()
}

// URL returns the kenuts:// address of the server with path appended
func (s *Server) URL(path string) string {
	return "kenuts://127.0.0.1:" + strconv.Itoa(s.Port) + path
}

// Frames returns the request frames received so far
func (s *Server) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

// Respond writes data and closes
func Respond(data string) Handler {
	return func(conn net.Conn, _ []byte) {
		io.WriteString(conn, data)
	}
}

// RespondChunks writes each part separately with a pause in between, then closes
func RespondChunks(pause time.Duration, parts ...string) Handler {
	return func(conn net.Conn, _ []byte) {
		for i, part := range parts {
			if i > 0 {
				time.Sleep(pause)
			}
			io.WriteString(conn, part)
		}
	}
}

// Hang writes prefix and then keeps the connection open until the client goes away
func Hang(prefix string) Handler {
	return func(conn net.Conn, _ []byte) {
		io.WriteString(conn, prefix)
		io.Copy(io.Discard, conn)
	}
}

// Reset writes prefix and aborts the connection with a TCP RST
func Reset(prefix string) Handler {
	return func(conn net.Conn, _ []byte) {
		io.WriteString(conn, prefix)
		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.SetLinger(0)
		}
	}
}

// ClosedPort returns a loopback port that had a listener a moment ago and now refuses connections
func ClosedPort(t testing.TB) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("kenutstest: listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}
