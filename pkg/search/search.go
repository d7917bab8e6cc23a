// Package search finds text in decoded KENUTS responses.
package search

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/response"
)

// Location specifies where to search
type Location int

const (
	InHeaders Location = 1 << iota
	InBody
	InAll = InHeaders | InBody
)

func (l Location) String() string {
	switch l {
	case InHeaders:
		return "header"
	case InBody:
		return "body"
	default:
		return "all"
	}
}

// Options configures search behavior
type Options struct {
	Pattern string

	// Regex treats Pattern as a regular expression
	Regex bool

	IgnoreCase bool

	// In defaults to InAll
	In Location

	// Decompress searches the body decoded per Content-Encoding
	Decompress bool

	// MaxResults limits number of results (0 = unlimited)
	MaxResults int

	// ContextSize is the number of bytes shown around a match (default 40)
	ContextSize int
}

// Match is a single hit
type Match struct {
	Location Location

	// Header is set for header matches
	Header string

	Text  string
	Start int
	End   int

	// Line is 1-indexed within the searched content
	Line int

	Context string
}

// Results holds all matches of one search
type Results struct {
	Query         string
	Matches       []Match
	HeaderMatches int
	BodyMatches   int
}

func (r *Results) HasMatches() bool {
	return len(r.Matches) > 0
}

// Searcher matches one compiled pattern
type Searcher struct {
	opts  Options
	regex *regexp.Regexp
}

// NewSearcher compiles opts.Pattern
func NewSearcher(opts Options) (*Searcher, error) {
	if opts.In == 0 {
		opts.In = InAll
	}
	if opts.ContextSize <= 0 {
		opts.ContextSize = 40
	}

	pattern := regexp.QuoteMeta(opts.Pattern)
	if opts.Regex {
		pattern = opts.Pattern
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Searcher{opts: opts, regex: re}, nil
}

// Bytes returns every match in data
func (s *Searcher) Bytes(data []byte) []Match {
	limit := -1
	if s.opts.MaxResults > 0 {
		limit = s.opts.MaxResults
	}

	var matches []Match
	for _, loc := range s.regex.FindAllIndex(data, limit) {
		if loc[0] == loc[1] {
			continue
		}
		matches = append(matches, Match{
			Text:    string(data[loc[0]:loc[1]]),
			Start:   loc[0],
			End:     loc[1],
			Line:    bytes.Count(data[:loc[0]], []byte("\n")) + 1,
			Context: extractContext(data, loc[0], loc[1], s.opts.ContextSize),
		})
	}
	return matches
}

// Response searches the header values and the body of resp
func (s *Searcher) Response(resp *response.Response) (*Results, error) {
	results := &Results{Query: s.opts.Pattern}

	if s.opts.In&InHeaders != 0 && resp.Headers != nil {
		for _, h := range resp.Headers.All() {
			line := h.Name + ": " + h.Value
			for _, m := range s.Bytes([]byte(line)) {
				m.Location = InHeaders
				m.Header = h.Name
				results.Matches = append(results.Matches, m)
				results.HeaderMatches++
			}
		}
	}

	if s.opts.In&InBody != 0 {
		body := resp.Body
		if s.opts.Decompress {
			decoded, err := resp.DecodedBody()
			if err != nil {
				return nil, err
			}
			body = decoded
		}
		for _, m := range s.Bytes(body) {
			m.Location = InBody
			results.Matches = append(results.Matches, m)
			results.BodyMatches++
		}
	}

	if s.opts.MaxResults > 0 && len(results.Matches) > s.opts.MaxResults {
		results.Matches = results.Matches[:s.opts.MaxResults]
	}
	return results, nil
}

// Find is a convenience wrapper around NewSearcher and Response
func Find(resp *response.Response, opts Options) (*Results, error) {
	s, err := NewSearcher(opts)
	if err != nil {
		return nil, err
	}
	return s.Response(resp)
}

// extractContext returns the match with up to size bytes on either side, on one line
func extractContext(data []byte, start, end, size int) string {
	from := max(start-size, 0)
	to := min(end+size, len(data))
	return strings.Join(strings.Fields(string(data[from:to])), " ")
}
