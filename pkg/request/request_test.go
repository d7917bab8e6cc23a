package request_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/WhileEndless/go-kenuts/pkg/errors"
	"github.com/WhileEndless/go-kenuts/pkg/request"
)

func TestBuildCanonicalFrame(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "KENUTS GET / ZG/1.0\r\nZG-Mode: HTML\r\n\r\n"},
		{"", "KENUTS GET / ZG/1.0\r\nZG-Mode: HTML\r\n\r\n"},
		{"/docs/index", "KENUTS GET /docs/index ZG/1.0\r\nZG-Mode: HTML\r\n\r\n"},
	}

	for _, tt := range tests {
		if got := string(request.Frame(tt.path)); got != tt.want {
			t.Errorf("Frame(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBuildKeepsExtraHeadersAfterMode(t *testing.T) {
	req := request.New("/a")
	req.Headers.Set("Accept-Encoding", "br, gzip")

	want := "KENUTS GET /a ZG/1.0\r\nZG-Mode: HTML\r\nAccept-Encoding: br, gzip\r\n\r\n"
	if got := req.BuildString(); got != want {
		t.Errorf("BuildString() = %q, want %q", got, want)
	}
}

func TestParseFramings(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantMethod  string
		wantTarget  string
		wantVersion string
		wantFraming request.Framing
	}{
		{"canonical", "KENUTS GET /docs ZG/1.0\r\nZG-Mode: HTML\r\n\r\n", "GET", "/docs", "ZG/1.0", request.FramingCanonical},
		{"legacy", "KENUTS GET ZG/1.0\r\nZG-Mode: HTML\r\n\r\n", "GET", "/", "ZG/1.0", request.FramingLegacy},
		{"legacy without version", "KENUTS GET\r\n\r\n", "GET", "/", "ZG/1.0", request.FramingLegacy},
		{"bare", "GET /x HTTP/1.1\r\nHost: a\r\n\r\n", "GET", "/x", "HTTP/1.1", request.FramingBare},
		{"lower case", "kenuts head /y zg/1.0\n\n", "HEAD", "/y", "zg/1.0", request.FramingCanonical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := request.Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if req.Method != tt.wantMethod || req.Target != tt.wantTarget || req.Version != tt.wantVersion {
				t.Errorf("got %s %s %s, want %s %s %s",
					req.Method, req.Target, req.Version, tt.wantMethod, tt.wantTarget, tt.wantVersion)
			}
			if req.Framing != tt.wantFraming {
				t.Errorf("Framing = %v, want %v", req.Framing, tt.wantFraming)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	req, err := request.Parse(request.Frame("/round/trip"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if req.Target != "/round/trip" || req.Mode() != request.ModeHTML {
		t.Errorf("Parse(Frame()) = %+v", req)
	}
}

func TestParseRejectsEmptyAndMethodless(t *testing.T) {
	if _, err := request.Parse([]byte("\r\n")); !errors.IsType(err, errors.ErrorTypeInvalidFormat) {
		t.Errorf("empty frame error = %v", err)
	}
	if _, err := request.Parse([]byte("KENUTS\r\n\r\n")); !errors.IsType(err, errors.ErrorTypeInvalidMethod) {
		t.Errorf("methodless frame error = %v", err)
	}
}

func TestReadRequestStopsAtBlankLine(t *testing.T) {
	stream := "KENUTS GET /a ZG/1.0\r\nZG-Mode: HTML\r\n\r\ntrailing bytes"
	r := bufio.NewReader(strings.NewReader(stream))

	req, err := request.ReadRequest(r, 10)
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if req.Target != "/a" || req.Headers.Len() != 1 {
		t.Errorf("ReadRequest() = %+v", req)
	}

	rest, _ := r.ReadString(0)
	if rest != "trailing bytes" {
		t.Errorf("remaining stream = %q", rest)
	}
}

func TestReadRequestHeaderLimit(t *testing.T) {
	stream := "KENUTS GET / ZG/1.0\r\nA: 1\r\nB: 2\r\nC: 3\r\n\r\n"

	_, err := request.ReadRequest(bufio.NewReader(strings.NewReader(stream)), 2)
	if !errors.IsType(err, errors.ErrorTypeMalformedHeader) {
		t.Errorf("ReadRequest() error = %v, want malformed header", err)
	}
}

func TestReadRequestTruncatedFrame(t *testing.T) {
	stream := "KENUTS GET /cut ZG/1.0\r\nZG-Mode: HTML"

	req, err := request.ReadRequest(bufio.NewReader(strings.NewReader(stream)), 10)
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if req.Target != "/cut" || req.Mode() != "HTML" {
		t.Errorf("ReadRequest() = %+v", req)
	}

	if _, err := request.ReadRequest(bufio.NewReader(strings.NewReader("KENUTS GET")), 10); err == nil {
		t.Error("ReadRequest() without a complete request line succeeded")
	}
}

func TestReadRequestLineLength(t *testing.T) {
	// request line of exactly n bytes including CRLF
	line := func(n int) string {
		fixed := len("KENUTS GET / ZG/1.0\r\n")
		return "KENUTS GET /" + strings.Repeat("a", n-fixed) + " ZG/1.0\r\n"
	}

	req, err := request.ReadRequest(bufio.NewReader(strings.NewReader(line(request.MaxLineLength)+"\r\n")), 10)
	if err != nil {
		t.Fatalf("line at the limit: error = %v", err)
	}
	if len(req.Target) != request.MaxLineLength-len("KENUTS GET  ZG/1.0\r\n") {
		t.Errorf("target length = %d", len(req.Target))
	}

	tests := map[string]string{
		"one byte over": line(request.MaxLineLength+1) + "\r\n",
		"no newline":    "KENUTS GET /" + strings.Repeat("x", 64<<10),
		"long header":   "KENUTS GET / ZG/1.0\r\nX-Pad: " + strings.Repeat("p", request.MaxLineLength) + "\r\n\r\n",
	}
	for name, stream := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := request.ReadRequest(bufio.NewReader(strings.NewReader(stream)), 10)
			if !errors.IsType(err, errors.ErrorTypeMalformedHeader) {
				t.Errorf("ReadRequest() error = %v, want malformed header", err)
			}
		})
	}
}
