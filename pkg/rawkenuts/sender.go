// Package rawkenuts performs single KENUTS exchanges over raw TCP: connect, write one
// request frame, read until the peer closes.
package rawkenuts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/WhileEndless/go-kenuts/pkg/address"
)

const readChunkSize = 32 * 1024

// Sender handles sending raw KENUTS requests over TCP.
// A Sender holds no per-exchange state and is safe for concurrent use.
type Sender struct {
	resolver *net.Resolver
}

// NewSender creates a new Sender instance
func NewSender() *Sender {
	return &Sender{
		resolver: net.DefaultResolver,
	}
}

// Do sends one request frame to addr and returns everything the peer wrote before closing.
// Every failure is a *ConnectionError; no partial data is returned with it.
func (s *Sender) Do(ctx context.Context, addr address.Address, frame []byte, opts Options) (*Response, error) {
	opts.SetDefaults()

	resp := NewResponse()
	startTime := time.Now()

	ips, err := s.resolve(ctx, addr.Host, opts, resp)
	if err != nil {
		return nil, err
	}

	conn, err := s.connect(ctx, ips, addr.Port, opts, resp)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Cancelling the context closes the socket, which unblocks any pending I/O
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := s.writeRequest(ctx, conn, frame, opts.WriteTimeout); err != nil {
		return nil, err
	}

	readStart := time.Now()
	raw, err := s.readResponse(ctx, conn, opts, func() {
		resp.Timing.TTFB = time.Since(readStart)
	})
	if err != nil {
		return nil, err
	}

	resp.Raw = raw
	resp.Timing.Total = time.Since(startTime)

	return resp, nil
}

// resolve returns the candidate IPs for host, in resolver order
func (s *Sender) resolve(ctx context.Context, host string, opts Options, resp *Response) ([]string, error) {
	if opts.ConnIP != "" {
		return []string{opts.ConnIP}, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}

	dnsStart := time.Now()
	lookupCtx := ctx
	if opts.ConnTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, opts.ConnTimeout)
		defer cancel()
	}

	addrs, err := s.resolver.LookupIPAddr(lookupCtx, host)
	if err != nil {
		return nil, classify(ctx, err, NewDNSError)
	}
	if len(addrs) == 0 {
		return nil, NewDNSError(fmt.Errorf("no IP addresses found for host: %s", host))
	}
	resp.Timing.DNSLookup = time.Since(dnsStart)

	ips := make([]string, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP.String())
	}
	return ips, nil
}

// connect dials each candidate IP until one accepts
func (s *Sender) connect(ctx context.Context, ips []string, port int, opts Options, resp *Response) (net.Conn, error) {
	dialer := &net.Dialer{}
	if opts.ConnTimeout > 0 {
		dialer.Timeout = opts.ConnTimeout
	}

	tcpStart := time.Now()
	var lastErr error
	for _, ip := range ips {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		resp.Timing.TCPConnect = time.Since(tcpStart)
		resp.ConnectedIP = ip
		resp.ConnectedPort = port
		return conn, nil
	}

	return nil, classify(ctx, lastErr, NewConnectionError)
}

// writeRequest writes the frame and nothing else
func (s *Sender) writeRequest(ctx context.Context, conn net.Conn, frame []byte, timeout time.Duration) error {
	if timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	if _, err := conn.Write(frame); err != nil {
		return classify(ctx, err, NewWriteError)
	}
	return nil
}

// readResponse accumulates bytes in arrival order until EOF
func (s *Sender) readResponse(ctx context.Context, conn net.Conn, opts Options, firstByte func()) ([]byte, error) {
	if opts.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
	}

	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			if buf.Len() == 0 {
				firstByte()
			}
			if int64(buf.Len()+n) > opts.MaxResponseSize {
				return nil, NewTooLargeError(opts.MaxResponseSize)
			}
			buf.Write(chunk[:n])
		}

		if errors.Is(err, io.EOF) {
			// A cancel that raced the final read still wins
			if ctx.Err() != nil {
				return nil, classify(ctx, err, NewReadError)
			}
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, classify(ctx, err, NewReadError)
		}
	}
}
