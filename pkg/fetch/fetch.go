// Package fetch is the single entry point of the KENUTS client: it validates an
// address, performs one exchange and returns the response body or a localized failure.
package fetch

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/WhileEndless/go-kenuts/pkg/address"
	"github.com/WhileEndless/go-kenuts/pkg/compression"
	"github.com/WhileEndless/go-kenuts/pkg/errors"
	"github.com/WhileEndless/go-kenuts/pkg/rawkenuts"
	"github.com/WhileEndless/go-kenuts/pkg/request"
	"github.com/WhileEndless/go-kenuts/pkg/response"
)

// Recorder receives one observation per finished fetch
type Recorder interface {
	ObserveFetch(outcome string, duration time.Duration, rawBytes int)
}

// Outcomes passed to Recorder besides the failing Stage
const (
	OutcomeOK            = "ok"
	OutcomeSoftMalformed = "soft_malformed"
)

// Options configures a Client
type Options struct {
	// Transport is handed to the sender for every exchange
	Transport rawkenuts.Options

	// StrictResponses reports a response without header separator as a failure
	// instead of succeeding with the "Invalid response" placeholder
	StrictResponses bool

	// Decompress advertises Accept-Encoding and decodes the body per Content-Encoding
	Decompress bool

	// Language selects the message catalog (default English)
	Language language.Tag

	// Logger defaults to a disabled logger
	Logger *zerolog.Logger

	// Recorder is optional
	Recorder Recorder
}

// Client runs fetches. It is safe for concurrent use; every fetch owns its own connection.
type Client struct {
	opts    Options
	sender  *rawkenuts.Sender
	printer *message.Printer
	logger  zerolog.Logger
}

// New creates a Client
func New(opts Options) *Client {
	if opts.Language == language.Und {
		opts.Language = language.English
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{
		opts:    opts,
		sender:  rawkenuts.NewSender(),
		printer: message.NewPrinter(opts.Language),
		logger:  logger.With().Str("component", "fetch").Logger(),
	}
}

var defaultClient = New(Options{})

// FetchHTML fetches addr with the default client
func FetchHTML(ctx context.Context, addr string) (string, error) {
	return defaultClient.FetchHTML(ctx, addr)
}

// Fetch fetches addr with the default client, asynchronously
func Fetch(ctx context.Context, addr string) <-chan Result {
	return defaultClient.Fetch(ctx, addr)
}

// FetchHTML blocks until the fetch completes and returns the body or a *Failure
func (c *Client) FetchHTML(ctx context.Context, addr string) (string, error) {
	res := c.Do(ctx, addr)
	return res.Body, res.Err
}

// Fetch starts the fetch in its own goroutine. The channel yields exactly one Result and is then closed.
func (c *Client) Fetch(ctx context.Context, addr string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- c.Do(ctx, addr)
	}()
	return ch
}

// Do runs the whole pipeline: parse, frame, exchange, decode
func (c *Client) Do(ctx context.Context, raw string) Result {
	res := Result{RequestID: uuid.NewString()}
	logger := c.logger.With().Str("request_id", res.RequestID).Str("address", raw).Logger()
	start := time.Now()

	finish := func(outcome string) Result {
		duration := time.Since(start)
		rawBytes := -1
		if res.Exchange != nil {
			rawBytes = res.Exchange.Size()
		}
		if c.opts.Recorder != nil {
			c.opts.Recorder.ObserveFetch(outcome, duration, rawBytes)
		}

		event := logger.Debug()
		if res.Err != nil {
			event = logger.Warn().Err(res.Err)
		}
		event.Str("outcome", outcome).Dur("duration", duration).Int("bytes", rawBytes).Msg("fetch complete")
		return res
	}
	fail := func(stage Stage, message string, err error) Result {
		res.Err = &Failure{Stage: stage, Message: message, Err: err}
		return finish(string(stage))
	}

	addr, err := address.Parse(raw)
	if err != nil {
		return fail(StageAddress, c.addressMessage(raw, err), err)
	}

	req := request.New(addr.Path)
	if c.opts.Decompress {
		req.Headers.Set("Accept-Encoding", compression.AcceptEncoding())
	}
	logger.Debug().Str("target", addr.HostPort()).Str("path", addr.Path).Msg("sending request")

	exchange, err := c.sender.Do(ctx, addr, req.Build(), c.opts.Transport)
	if err != nil {
		return fail(StageConnection, c.printer.Sprintf(msgConnectionError, err.Error()), err)
	}
	res.Exchange = exchange

	decoded, err := response.Decode(exchange.Raw)
	if err != nil {
		if c.opts.StrictResponses {
			return fail(StageResponse, c.printer.Sprintf(msgInvalidResponse), err)
		}
		res.Body = c.printer.Sprintf(msgInvalidResponse)
		return finish(OutcomeSoftMalformed)
	}
	res.Response = decoded

	body := decoded.Body
	if c.opts.Decompress && decoded.GetContentEncoding() != "" {
		body, err = decoded.DecodedBody()
		if err != nil {
			return fail(StageResponse, c.printer.Sprintf(msgInvalidResponse), err)
		}
	}

	res.Body = string(body)
	return finish(OutcomeOK)
}

func (c *Client) addressMessage(raw string, err error) string {
	var perr *errors.Error
	if !stderrors.As(err, &perr) {
		return c.printer.Sprintf(msgInvalidHost)
	}

	switch perr.Type {
	case errors.ErrorTypeInvalidScheme:
		return c.printer.Sprintf(msgOnlyKenuts)
	case errors.ErrorTypeInvalidPort:
		return c.printer.Sprintf(msgInvalidPort, address.RawPort(raw))
	default:
		return c.printer.Sprintf(msgInvalidHost)
	}
}
