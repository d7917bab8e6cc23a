// Package address parses and validates kenuts:// addresses.
package address

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/errors"
)

const (
	// Scheme is the only scheme the client accepts
	Scheme = "kenuts"

	// Prefix is the literal every address must start with
	Prefix = Scheme + "://"

	// DefaultPort is used when the address carries no port
	DefaultPort = 6969

	// DefaultPath is used when the address carries no path
	DefaultPath = "/"
)

// Address is a parsed kenuts:// URI
type Address struct {
	Host string
	Port int
	Path string
}

// Parse validates raw and decomposes it into host, port and path.
// Failures are *errors.Error values typed InvalidScheme, InvalidHost or InvalidPort.
func Parse(raw string) (Address, error) {
	if !strings.HasPrefix(raw, Prefix) {
		return Address{}, errors.NewError(errors.ErrorTypeInvalidScheme,
			"only "+Prefix+" addresses are supported", "parse", []byte(raw))
	}

	u, err := url.Parse(raw)
	if err != nil {
		// url.Parse reports bad ports itself; keep that classification
		if strings.Contains(err.Error(), "invalid port") {
			return Address{}, errors.NewError(errors.ErrorTypeInvalidPort,
				"invalid port number: "+RawPort(raw), "parse", []byte(raw))
		}
		return Address{}, errors.NewError(errors.ErrorTypeInvalidHost,
			"invalid address: "+err.Error(), "parse", []byte(raw))
	}

	host := strings.TrimSpace(u.Hostname())
	if host == "" {
		return Address{}, errors.NewError(errors.ErrorTypeInvalidHost,
			"invalid host address", "parse", []byte(raw))
	}

	port, err := parsePort(u)
	if err != nil {
		return Address{}, err
	}

	// The path goes on the request line as typed: percent escapes stay escaped
	path := u.EscapedPath()
	if path == "" {
		path = DefaultPath
	}
	if u.RawQuery != "" {
		path += "?" + strings.ReplaceAll(u.RawQuery, " ", "%20")
	}

	return Address{Host: host, Port: port, Path: path}, nil
}

// parsePort applies the default port and the (0, 65536) range check
func parsePort(u *url.URL) (int, error) {
	// "host:" leaves Port() empty and is treated as no port at all
	if u.Port() == "" {
		return DefaultPort, nil
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port >= 65536 {
		return 0, errors.NewError(errors.ErrorTypeInvalidPort,
			"invalid port number: "+u.Port(), "parse", []byte(u.String()))
	}
	return port, nil
}

// RawPort returns whatever follows the last colon of the authority in raw, as typed
func RawPort(raw string) string {
	rest := strings.TrimPrefix(raw, Prefix)
	if idx := strings.IndexAny(rest, "/?#"); idx != -1 {
		rest = rest[:idx]
	}
	if idx := strings.LastIndex(rest, ":"); idx != -1 && !strings.HasSuffix(rest, "]") {
		return rest[idx+1:]
	}
	return ""
}

// HostPort returns the dial target for the address
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// String renders the address in canonical kenuts://host:port/path form
func (a Address) String() string {
	return Prefix + a.HostPort() + a.Path
}
