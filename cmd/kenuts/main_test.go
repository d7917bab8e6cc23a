package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/WhileEndless/go-kenuts/internal/testutil/kenutstest"
	"github.com/WhileEndless/go-kenuts/pkg/fetch"
)

func TestRunPrintsDecodedBody(t *testing.T) {
	srv := kenutstest.NewServer(t, kenutstest.Respond("ZG/1.0 200 OK\r\n\r\n&lt;h1&gt;Merhaba&lt;/h1&gt;"))

	var stdout, stderr bytes.Buffer
	if err := run([]string{srv.URL("/")}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := stdout.String(); got != "<h1>Merhaba</h1>\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunRenderModes(t *testing.T) {
	srv := kenutstest.NewServer(t, kenutstest.Respond("H\r\n\r\n<p>a &amp; b</p>"))

	tests := map[string]string{
		"html":    "<p>a &amp; b</p>\n",
		"decoded": "<p>a & b</p>\n",
		"text":    "a & b\n",
	}
	for mode, want := range tests {
		var stdout, stderr bytes.Buffer
		if err := run([]string{"-render", mode, srv.URL("/")}, &stdout, &stderr); err != nil {
			t.Fatalf("run(%s) error = %v", mode, err)
		}
		if stdout.String() != want {
			t.Errorf("render %s = %q, want %q", mode, stdout.String(), want)
		}
	}
}

func TestRunRaw(t *testing.T) {
	raw := "ZG/1.0 200 OK\r\nZG-Power: MAXIMUM\r\n\r\nbody"
	srv := kenutstest.NewServer(t, kenutstest.Respond(raw))

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-raw", srv.URL("/")}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if stdout.String() != raw {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunFailureIsLocalized(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"-lang", "tr", "http://example.com"}, &stdout, &stderr)

	var f *fetch.Failure
	if !errors.As(err, &f) {
		t.Fatalf("run() error = %v", err)
	}
	if f.Message != "Sadece kenuts:// destekleniyor" {
		t.Errorf("Message = %q", f.Message)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout on failure = %q", stdout.String())
	}
}

func TestRunStrict(t *testing.T) {
	srv := kenutstest.NewServer(t, kenutstest.Respond("junk"))

	var stdout, stderr bytes.Buffer
	if err := run([]string{srv.URL("/")}, &stdout, &stderr); err != nil {
		t.Fatalf("soft run() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "Invalid response") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"-strict", srv.URL("/")}, &stdout, &stderr); err == nil {
		t.Error("strict run() succeeded on malformed response")
	}
}

func TestResolveFlagsOverrideConfig(t *testing.T) {
	f, _, set, err := parseFlags([]string{"-timeout", "3s", "-lang", "tr", "-decompress", "kenuts://x"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}

	cfg, err := resolve(f, set)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if cfg.Fetch.Transport.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %s", cfg.Fetch.Transport.ReadTimeout)
	}
	if cfg.Fetch.Language != language.Turkish || !cfg.Fetch.Decompress {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Render != "decoded" {
		t.Errorf("Render = %q", cfg.Render)
	}
}

func TestResolveRejectsUnknownRender(t *testing.T) {
	f, _, set, _ := parseFlags([]string{"-render", "pdf"}, &bytes.Buffer{})
	if _, err := resolve(f, set); err == nil {
		t.Error("resolve() accepted render=pdf")
	}
}

func TestRunVersion(t *testing.T) {
	var stdout bytes.Buffer
	if err := run([]string{"-version"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "kenuts ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunFind(t *testing.T) {
	srv := kenutstest.NewServer(t, kenutstest.Respond("ZG/1.0 200 OK\r\nZG-Power: MAXIMUM\r\n\r\n<p>first</p>\n<p>maximum</p>"))

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-find", "maximum", srv.URL("/")}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := "header:1: ZG-Power: MAXIMUM\nbody:2: <p>first</p> <p>maximum</p>\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunCheck(t *testing.T) {
	srv := kenutstest.NewServer(t, kenutstest.Respond("ZG/1.0 200 OK\r\nContent-Length: 99\r\n\r\nshort"))

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-check", srv.URL("/")}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "warning: Content-Length mismatch") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if stdout.String() != "short\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}
