package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/WhileEndless/go-kenuts/internal/config"
	"github.com/WhileEndless/go-kenuts/internal/logging"
	"github.com/WhileEndless/go-kenuts/internal/observability"
	"github.com/WhileEndless/go-kenuts/pkg/fetch"
	"github.com/WhileEndless/go-kenuts/pkg/render"
	"github.com/WhileEndless/go-kenuts/pkg/search"
	"github.com/WhileEndless/go-kenuts/pkg/utils"
	"github.com/WhileEndless/go-kenuts/pkg/version"
)

const defaultAddress = "kenuts://localhost/"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "kenuts: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	timeout    time.Duration
	lang       string
	renderMode string
	raw        bool
	strict     bool
	decompress bool
	verbose    bool
	version    bool
	find       string
	regex      bool
	check      bool
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, []string, map[string]bool, error) {
	var f cliFlags
	fs := flag.NewFlagSet("kenuts", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: kenuts [flags] [kenuts://host[:port][/path]]\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configPath, "config", "", "TOML client config")
	fs.DurationVar(&f.timeout, "timeout", 0, "read timeout for the whole response")
	fs.StringVar(&f.lang, "lang", "", "message language (en, tr)")
	fs.StringVar(&f.renderMode, "render", "", "output form: html, decoded or text")
	fs.BoolVar(&f.raw, "raw", false, "print the raw response including headers")
	fs.BoolVar(&f.strict, "strict", false, "fail on responses without a header separator")
	fs.BoolVar(&f.decompress, "decompress", false, "request and decode compressed bodies")
	fs.BoolVar(&f.verbose, "v", false, "log exchange details to stderr")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.StringVar(&f.find, "find", "", "print matches of a pattern in the response instead of the body")
	fs.BoolVar(&f.regex, "regex", false, "treat -find as a regular expression")
	fs.BoolVar(&f.check, "check", false, "report response inconsistencies on stderr")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, fs.Args(), set, nil
}

// resolve applies explicitly set flags on top of the config file
func resolve(f cliFlags, set map[string]bool) (config.Client, error) {
	cfg, err := config.LoadClient(f.configPath)
	if err != nil {
		return config.Client{}, err
	}

	if set["timeout"] {
		cfg.Fetch.Transport.ReadTimeout = f.timeout
	}
	if set["lang"] {
		cfg.Fetch.Language = fetch.ParseLanguage(f.lang)
	}
	if set["render"] {
		switch f.renderMode {
		case "html", "decoded", "text":
			cfg.Render = f.renderMode
		default:
			return config.Client{}, fmt.Errorf("unknown render mode %q", f.renderMode)
		}
	}
	if set["strict"] {
		cfg.Fetch.StrictResponses = f.strict
	}
	if set["decompress"] {
		cfg.Fetch.Decompress = f.decompress
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	f, rest, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintf(stdout, "kenuts %s (%s)\n", version.GetVersion(), version.Protocol)
		return nil
	}

	logging.ConfigureRuntime()
	logger := logging.Named("kenuts")
	if f.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.WarnLevel)
	}

	cfg, err := resolve(f, set)
	if err != nil {
		return err
	}
	cfg.Fetch.Logger = &logger
	cfg.Fetch.Recorder = observability.FetchRecorder{}

	addr := defaultAddress
	if len(rest) > 0 {
		addr = rest[0]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res := <-fetch.New(cfg.Fetch).Fetch(ctx, addr)
	if res.Err != nil {
		return res.Err
	}

	if res.Exchange != nil {
		logger.Info().
			Str("request_id", res.RequestID).
			Str("connected", fmt.Sprintf("%s:%d", res.Exchange.ConnectedIP, res.Exchange.ConnectedPort)).
			Int("bytes", res.Exchange.Size()).
			Dur("ttfb", res.Exchange.Timing.TTFB).
			Dur("total", res.Exchange.Timing.Total).
			Msg("exchange complete")
		if f.verbose {
			fmt.Fprintln(stderr, res.Exchange.Timing.String())
		}
	}

	if f.check && res.Response != nil {
		report(stderr, utils.ValidateResponse(res.Response))
	}

	if f.find != "" {
		if res.Response == nil {
			return fmt.Errorf("nothing to search: %s", res.Body)
		}
		results, err := search.Find(res.Response, search.Options{
			Pattern:    f.find,
			Regex:      f.regex,
			IgnoreCase: !f.regex,
			Decompress: cfg.Fetch.Decompress,
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		for _, m := range results.Matches {
			fmt.Fprintf(stdout, "%s:%d: %s\n", m.Location, m.Line, m.Context)
		}
		return nil
	}

	if f.raw && res.Exchange != nil {
		_, err := stdout.Write(res.Exchange.Raw)
		return err
	}

	_, err = io.WriteString(stdout, present(res.Body, cfg.Render)+"\n")
	return err
}

func report(w io.Writer, result *utils.ValidationResult) {
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	for _, msg := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

// present converts a body into the requested output form
func present(body, mode string) string {
	switch mode {
	case "html":
		return body
	case "text":
		return render.TextString(render.DecodeEntities(body))
	default:
		return render.DecodeEntities(body)
	}
}
