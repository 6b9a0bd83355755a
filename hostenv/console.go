package hostenv

import (
	"io"
)

// Console is the side channel stubs print to. It is separate from the
// module's own state and can be redirected between invocations so output is
// attributed to the call that produced it.
type Console struct {
	w io.Writer
}

// NewConsole returns a console writing to w; nil discards.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w}
}

// Write implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Redirect sends subsequent output to w and returns the previous writer.
func (c *Console) Redirect(w io.Writer) io.Writer {
	prev := c.w
	if w == nil {
		w = io.Discard
	}
	c.w = w
	return prev
}
