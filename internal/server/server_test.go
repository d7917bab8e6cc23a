package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/WhileEndless/go-kenuts/pkg/compression"
	"github.com/WhileEndless/go-kenuts/pkg/fetch"
	"github.com/WhileEndless/go-kenuts/pkg/request"
	"github.com/WhileEndless/go-kenuts/pkg/response"
)

const testIndex = "<html><body><h1>KENUTS</h1></body></html>"

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	return path
}

func testConfig(indexPath string) Config {
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.Addr = "127.0.0.1:0"
	cfg.IndexFile = indexPath
	cfg.WatchIndex = false
	cfg.ShutdownTimeout = 100 * time.Millisecond
	return cfg
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func kenutsURL(srv *Server, path string) string {
	return "kenuts://127.0.0.1:" + strconv.Itoa(srv.Addr().(*net.TCPAddr).Port) + path
}

// exchange writes frame verbatim and reads until the server closes
func exchange(t *testing.T, srv *Server, frame string) string {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(conn, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func decode(t *testing.T, raw string) *response.Response {
	t.Helper()
	resp, err := response.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%q) error = %v", raw, err)
	}
	return resp
}

func TestServeIndexToFetchClient(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))

	res := fetch.New(fetch.Options{}).Do(context.Background(), kenutsURL(srv, "/any/path"))
	if res.Err != nil {
		t.Fatalf("fetch error = %v", res.Err)
	}
	if res.Body != testIndex {
		t.Errorf("body = %q", res.Body)
	}

	resp := res.Response
	if resp.StatusCode != response.StatusOK || resp.Version != "ZG/1.0" {
		t.Errorf("status line = %q", resp.StatusLine)
	}

	var names []string
	for _, h := range resp.Headers.All() {
		names = append(names, h.Name)
	}
	if got := strings.Join(names, ","); got != "ZG-Power,Content-Length,Content-Type" {
		t.Errorf("header order = %s", got)
	}
	if resp.Headers.Get("ZG-Power") != "MAXIMUM" {
		t.Errorf("ZG-Power = %q", resp.Headers.Get("ZG-Power"))
	}
	if resp.GetContentLength() != len(testIndex) {
		t.Errorf("Content-Length = %d", resp.GetContentLength())
	}
	if resp.GetContentType() != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", resp.GetContentType())
	}
}

func TestServeAcceptsAllFramings(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))

	frames := map[string]string{
		"canonical": string(request.Frame("/docs")),
		"legacy":    "KENUTS GET ZG/1.0\r\nZG-Mode: HTML\r\n\r\n",
		"bare":      "GET / ZG/1.0\r\n\r\n",
		"lowercase": "kenuts get / ZG/1.0\r\n\r\n",
		"no header": "KENUTS GET /\r\n\r\n",
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			resp := decode(t, exchange(t, srv, frame))
			if resp.StatusCode != response.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if string(resp.Body) != testIndex {
				t.Errorf("body = %q", resp.Body)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))

	for _, frame := range []string{"KENUTS POST / ZG/1.0\r\n\r\n", "DELETE /x ZG/1.0\r\n\r\n"} {
		raw := exchange(t, srv, frame)
		if !strings.HasPrefix(raw, "ZG/1.0 405 Method Not Allowed\r\n") {
			t.Errorf("response to %q = %q", frame, raw)
		}
		if body := decode(t, raw).Body; string(body) != "Method Not Allowed" {
			t.Errorf("body = %q", body)
		}
	}
}

func TestHeadHasNoBody(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))

	resp := decode(t, exchange(t, srv, "KENUTS HEAD / ZG/1.0\r\n\r\n"))
	if resp.StatusCode != response.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(resp.Body) != 0 {
		t.Errorf("HEAD body = %q", resp.Body)
	}
	if resp.GetContentLength() != len(testIndex) {
		t.Errorf("Content-Length = %d", resp.GetContentLength())
	}
}

func TestMalformedRequestGetsBadRequest(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))

	raw := exchange(t, srv, "KENUTS\r\n\r\n")
	if !strings.HasPrefix(raw, "ZG/1.0 400 Bad Request\r\n") {
		t.Errorf("response = %q", raw)
	}
}

func TestTooManyHeaderLines(t *testing.T) {
	cfg := testConfig(writeIndex(t, testIndex))
	cfg.MaxHeaderLines = 2
	srv := startServer(t, cfg)

	frame := "KENUTS GET / ZG/1.0\r\nA: 1\r\nB: 2\r\nC: 3\r\n\r\n"
	if raw := exchange(t, srv, frame); !strings.HasPrefix(raw, "ZG/1.0 400 ") {
		t.Errorf("response = %q", raw)
	}
}

func TestOverlongLineGetsBadRequest(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))

	frame := "KENUTS GET /" + strings.Repeat("a", request.MaxLineLength) + " ZG/1.0\r\n\r\n"
	if raw := exchange(t, srv, frame); !strings.HasPrefix(raw, "ZG/1.0 400 ") {
		t.Errorf("response = %q", raw)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(writeIndex(t, testIndex))
	cfg.RateLimit = RateLimitConfig{RPS: 0.001, Burst: 1}
	srv := startServer(t, cfg)

	first := decode(t, exchange(t, srv, string(request.Frame("/"))))
	if first.StatusCode != response.StatusOK {
		t.Fatalf("first status = %d", first.StatusCode)
	}

	second := decode(t, exchange(t, srv, string(request.Frame("/"))))
	if second.StatusCode != response.StatusTooManyRequests {
		t.Fatalf("second status = %d", second.StatusCode)
	}
	if second.Headers.Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}
}

func TestCompressionNegotiated(t *testing.T) {
	body := strings.Repeat(testIndex, 50)
	cfg := testConfig(writeIndex(t, body))
	cfg.Compression = true
	srv := startServer(t, cfg)

	res := fetch.New(fetch.Options{Decompress: true}).Do(context.Background(), kenutsURL(srv, "/"))
	if res.Err != nil {
		t.Fatalf("fetch error = %v", res.Err)
	}
	if res.Body != body {
		t.Errorf("decompressed body differs (%d bytes)", len(res.Body))
	}
	if enc := res.Response.GetContentEncoding(); enc != "br" {
		t.Errorf("Content-Encoding = %q, want br", enc)
	}
	if len(res.Response.Body) >= len(body) {
		t.Errorf("body not compressed: %d >= %d", len(res.Response.Body), len(body))
	}

	for _, enc := range []string{"gzip", "zstd", "deflate"} {
		resp := decode(t, exchange(t, srv, "KENUTS GET / ZG/1.0\r\nAccept-Encoding: "+enc+"\r\n\r\n"))
		if resp.GetContentEncoding() != enc {
			t.Errorf("Content-Encoding = %q, want %s", resp.GetContentEncoding(), enc)
			continue
		}
		plain, err := compression.Decompress(resp.Body, compression.DetectCompression(enc))
		if err != nil || string(plain) != body {
			t.Errorf("%s round trip failed: %v", enc, err)
		}
	}
}

func TestCompressionDisabledIgnoresAcceptEncoding(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))

	resp := decode(t, exchange(t, srv, "KENUTS GET / ZG/1.0\r\nAccept-Encoding: gzip\r\n\r\n"))
	if resp.GetContentEncoding() != "" || string(resp.Body) != testIndex {
		t.Errorf("response = %+v", resp)
	}
}

func TestStartRequiresIndex(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.html"))
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Start(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Start() error = %v, want not exist", err)
	}

	cfg = testConfig(writeIndex(t, ""))
	srv, _ = New(cfg)
	if err := srv.Start(context.Background()); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Start() error = %v, want ErrEmptyIndex", err)
	}
}

func TestIndexHotReload(t *testing.T) {
	path := writeIndex(t, testIndex)
	cfg := testConfig(path)
	cfg.WatchIndex = true
	srv := startServer(t, cfg)

	client := fetch.New(fetch.Options{})
	updated := "<p>updated</p>"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite index: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		body, err := client.FetchHTML(context.Background(), kenutsURL(srv, "/"))
		if err != nil {
			t.Fatalf("fetch error = %v", err)
		}
		if body == updated {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("index not reloaded, still %q", body)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStopClosesIdleConnections(t *testing.T) {
	cfg := testConfig(writeIndex(t, testIndex))
	cfg.ReadTimeout = time.Minute
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for srv.ActiveConnections() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never tracked")
		}
		time.Sleep(10 * time.Millisecond)
	}

	start := time.Now()
	srv.Stop()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Stop() took %s", elapsed)
	}
	if n := srv.ActiveConnections(); n != 0 {
		t.Errorf("ActiveConnections() = %d after Stop", n)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("connection still open after Stop")
	}

	if err := srv.Start(context.Background()); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Start() after Stop = %v", err)
	}
}

func TestMaxConnsStillServes(t *testing.T) {
	cfg := testConfig(writeIndex(t, testIndex))
	cfg.MaxConns = 1
	srv := startServer(t, cfg)

	for i := 0; i < 3; i++ {
		if resp := decode(t, exchange(t, srv, string(request.Frame("/")))); resp.StatusCode != response.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}
}

func TestContextCancelStopsAccepting(t *testing.T) {
	srv, err := New(testConfig(writeIndex(t, testIndex)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(srv.Stop)
	addr := srv.Addr().String()

	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return
		}
		conn.Close()
		if time.Now().After(deadline) {
			t.Fatal("listener still accepting after cancel")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestAdminRouter(t *testing.T) {
	srv := startServer(t, testConfig(writeIndex(t, testIndex)))
	exchange(t, srv, string(request.Frame("/")))

	router := NewAdminRouter(srv, srv.logger)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d", rec.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("/healthz body: %v", err)
	}
	if health["status"] != "ok" || health["server"] != "test" || health["protocol"] != "ZG/1.0" {
		t.Errorf("/healthz = %v", health)
	}
	if health["index_bytes"] != float64(len(testIndex)) {
		t.Errorf("index_bytes = %v", health["index_bytes"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kenuts_server_requests_total") {
		t.Error("/metrics missing kenuts_server_requests_total")
	}
}
