// Package server implements the KENUTS daemon: it answers every request with a cached
// index document and closes the connection.
package server

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/WhileEndless/go-kenuts/internal/observability"
	"github.com/WhileEndless/go-kenuts/pkg/compression"
	"github.com/WhileEndless/go-kenuts/pkg/errors"
	"github.com/WhileEndless/go-kenuts/pkg/request"
	"github.com/WhileEndless/go-kenuts/pkg/response"
	"github.com/WhileEndless/go-kenuts/pkg/utils"
)

// ErrServerClosed is returned by Start on a stopped server
var ErrServerClosed = stderrors.New("server closed")

// Server represents the KENUTS server
type Server struct {
	cfg     Config
	logger  zerolog.Logger
	index   *Index
	limiter *limiterStore
	tracker *connTracker
	started time.Time

	mu      sync.Mutex
	ln      net.Listener
	cancel  context.CancelFunc
	stopped bool

	wg sync.WaitGroup
}

// New constructs a Server; nothing is read or bound until Start
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger.With().Str("server", cfg.Name).Logger(),
		index:   NewIndex(cfg.IndexFile),
		tracker: newConnTracker(),
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = newLimiterStore(cfg.RateLimit)
	}
	return s, nil
}

// Start loads the index, binds the listener and begins accepting in the background.
// Cancelling ctx stops accepting; Stop also drains handlers.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrServerClosed
	}
	if s.ln != nil {
		return stderrors.New("server already started")
	}

	if err := s.index.Load(); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	ctx, cancel := context.WithCancel(ctx)

	if s.cfg.WatchIndex {
		err := s.index.Watch(ctx, s.logger, func(err error) {
			observability.RecordIndexReload(s.cfg.Name, err == nil)
		})
		if err != nil {
			cancel()
			ln.Close()
			return err
		}
	}
	if s.limiter != nil {
		s.limiter.startJanitor(ctx)
	}

	s.ln = ln
	s.cancel = cancel
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)

	// Unblock Accept when the caller's context ends
	context.AfterFunc(ctx, func() { ln.Close() })

	s.logger.Info().Str("addr", ln.Addr().String()).Str("index", s.cfg.IndexFile).Msg("KENUTS server listening")
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections reports how many connections are being handled
func (s *Server) ActiveConnections() int {
	return s.tracker.Len()
}

// Uptime is zero before Start
func (s *Server) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

// Stop closes the listener and waits up to ShutdownTimeout for in-flight
// connections before closing them forcibly
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		n := s.tracker.CloseAll()
		s.logger.Warn().Int("connections", n).Msg("shutdown timeout, closing connections")
		<-done
	}
	s.logger.Info().Msg("server stopped")
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				s.logger.Debug().Msg("accept loop finished")
				return
			}
			s.logger.Error().Err(err).Msg("accept error")
			time.Sleep(100 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection reads one request, writes one response and closes
func (s *Server) handleConnection(conn net.Conn) {
	start := time.Now()
	tc := s.tracker.Add(conn)
	defer s.tracker.Remove(tc.ID)
	defer conn.Close()

	observability.ConnectionOpened(s.cfg.Name)
	defer observability.ConnectionClosed(s.cfg.Name)

	logger := s.logger.With().Str("conn_id", tc.ID).Str("remote", tc.RemoteAddr).Logger()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	req, err := request.ReadRequest(bufio.NewReader(conn), s.cfg.MaxHeaderLines)
	if err != nil {
		if !errors.IsParseError(err) {
			logger.Debug().Err(err).Msg("read request")
			return
		}
		logger.Warn().Err(err).Msg("malformed request")
		s.write(conn, logger, simpleResponse(response.StatusBadRequest).Build())
		observability.RecordServerRequest(s.cfg.Name, "", "", response.StatusBadRequest, time.Since(start))
		return
	}

	if check := utils.ValidateRequest(req); len(check.Warnings) > 0 || len(check.Errors) > 0 {
		logger.Debug().Strs("warnings", check.Warnings).Strs("errors", check.Errors).Msg("non-canonical request")
	}

	resp := s.respond(req, peerIP(tc.RemoteAddr))
	wire := resp.Build()
	if req.Method == request.MethodHead {
		wire = resp.BuildHead()
	}
	s.write(conn, logger, wire)

	observability.RecordServerRequest(s.cfg.Name, req.Method, req.Framing.String(), resp.StatusCode, time.Since(start))
	logger.Info().
		Str("method", req.Method).
		Str("path", req.Target).
		Str("framing", req.Framing.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request served")
}

// respond decides the response for a parsed request. The index is served for any path.
func (s *Server) respond(req *request.Request, peer string) *response.Response {
	if req.Method != request.MethodGet && req.Method != request.MethodHead {
		return simpleResponse(response.StatusMethodNotAllowed)
	}
	if s.limiter != nil && !s.limiter.Allow(peer) {
		resp := simpleResponse(response.StatusTooManyRequests)
		resp.Headers.Set("Retry-After", "1")
		return resp
	}

	body := s.index.Body()

	resp := response.New(response.StatusOK)
	resp.Headers.Set("ZG-Power", "MAXIMUM")

	var encoding compression.CompressionType
	if s.cfg.Compression {
		if ct := compression.Negotiate(req.AcceptEncoding()); ct != compression.CompressionNone {
			packed, err := compression.Compress(body, ct)
			if err != nil {
				s.logger.Error().Err(err).Str("encoding", ct.String()).Msg("compress index")
			} else {
				body = packed
				encoding = ct
			}
		}
	}

	resp.SetBody(body)
	resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
	if encoding != compression.CompressionNone {
		resp.Headers.Set("Content-Encoding", encoding.String())
	}
	return resp
}

func (s *Server) write(conn net.Conn, logger zerolog.Logger, wire []byte) {
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := conn.Write(wire); err != nil {
		logger.Error().Err(err).Msg("write response")
	}
}

func simpleResponse(code int) *response.Response {
	resp := response.New(code)
	resp.SetBody([]byte(response.StatusText(code)))
	return resp
}

func peerIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
