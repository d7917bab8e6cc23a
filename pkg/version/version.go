// Package version provides version information for go-kenuts
package version

// Version is the current version of the go-kenuts library
const Version = "0.3.0"

// Protocol is the protocol version token carried in request and status lines
const Protocol = "ZG/1.0"

// GetVersion returns the current version of the library
func GetVersion() string {
	return Version
}
