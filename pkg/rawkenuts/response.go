package rawkenuts

// Response represents the terminal buffer of one KENUTS exchange
type Response struct {
	// Raw is every byte received before the peer closed the connection, in arrival order
	Raw []byte

	// Connection metadata
	ConnectedIP   string // Actual IP address connected to (after DNS resolution)
	ConnectedPort int    // Actual port connected to

	// Timing information
	Timing *Timing
}

// NewResponse creates a new Response instance
func NewResponse() *Response {
	return &Response{
		Timing: &Timing{},
	}
}

// Size returns the number of bytes received
func (r *Response) Size() int {
	return len(r.Raw)
}
