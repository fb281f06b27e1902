// Host-side client for the counter's line protocol.
package scanner

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// RemoteError is an error line reported by the device. The reason is the
// device's human-readable text with the "error: " marker stripped.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return "device error: " + e.Reason
}

// Client speaks the counter protocol over any byte stream (a serial
// port, a TCP connection to scansim, or an in-memory pipe in tests).
// Not safe for concurrent use; the protocol is strictly request/response.
type Client struct {
	w io.Writer
	r *bufio.Reader
}

// NewClient wraps an open connection to a device.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{w: rw, r: bufio.NewReader(rw)}
}

// Position reports the device's current head column (M1001).
func (c *Client) Position() (int, error) {
	if err := c.send("M1001"); err != nil {
		return 0, err
	}
	if err := c.expectAck(); err != nil {
		return 0, err
	}
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	pos, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("unexpected position response %q: %w", line, err)
	}
	return pos, nil
}

// ResetPosition moves the device origin to column zero (M1002).
func (c *Client) ResetPosition() error {
	return c.simple("M1002")
}

// Arm enables capture (M1003).
func (c *Client) Arm() error {
	return c.simple("M1003")
}

// Disarm disables capture (M1004).
func (c *Client) Disarm() error {
	return c.simple("M1004")
}

// ReadRange reads one channel's counts for columns start..end inclusive
// (M1005).
func (c *Client) ReadRange(channel, start, end int) ([]uint16, error) {
	if err := c.send(fmt.Sprintf("M1005 %d %d %d", channel, start, end)); err != nil {
		return nil, err
	}
	if err := c.expectAck(); err != nil {
		return nil, err
	}
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(line)
	if want := end - start + 1; len(fields) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(fields))
	}
	vals := make([]uint16, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("unexpected count %q: %w", f, err)
		}
		vals[i] = uint16(v)
	}

	if err := c.expectAck(); err != nil {
		return nil, err
	}
	return vals, nil
}

// ResetCounts zeroes every channel buffer on the device (M1006).
func (c *Client) ResetCounts() error {
	return c.simple("M1006")
}

// Status is the device state reported by M1007.
type Status struct {
	Armed    bool
	Position int
	Clipped  uint8 // bit i set: channel i saturated since the last counts reset
}

// Status queries armed state, position and the saturation mask (M1007).
func (c *Client) Status() (Status, error) {
	var st Status
	if err := c.send("M1007"); err != nil {
		return st, err
	}
	if err := c.expectAck(); err != nil {
		return st, err
	}
	line, err := c.readLine()
	if err != nil {
		return st, err
	}

	for _, field := range strings.Fields(line) {
		key, val, found := strings.Cut(field, "=")
		if !found {
			return st, fmt.Errorf("unexpected status field %q", field)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return st, fmt.Errorf("unexpected status field %q: %w", field, err)
		}
		switch key {
		case "armed":
			st.Armed = n != 0
		case "position":
			st.Position = n
		case "clipped":
			st.Clipped = uint8(n)
		}
	}

	if err := c.expectAck(); err != nil {
		return st, err
	}
	return st, nil
}

// Scan is one completed acquisition: every channel's full buffer.
type Scan struct {
	Taken    time.Time  `json:"taken"`
	Columns  int        `json:"columns"`
	Duration float64    `json:"duration_seconds"`
	Clipped  uint8      `json:"clipped"`
	Channels [][]uint16 `json:"channels"`
}

// Acquire runs a full timed acquisition: clear, arm, count for the given
// duration, disarm, then read back every channel. The device geometry
// must be supplied by the caller (the device does not advertise it).
func (c *Client) Acquire(channels, columns int, d time.Duration) (*Scan, error) {
	if err := c.ResetCounts(); err != nil {
		return nil, fmt.Errorf("reset before acquisition: %w", err)
	}
	if err := c.Arm(); err != nil {
		return nil, fmt.Errorf("arm: %w", err)
	}
	start := time.Now()
	time.Sleep(d)
	if err := c.Disarm(); err != nil {
		return nil, fmt.Errorf("disarm: %w", err)
	}

	scan := &Scan{
		Taken:    start,
		Columns:  columns,
		Duration: time.Since(start).Seconds(),
		Channels: make([][]uint16, channels),
	}
	for ch := 0; ch < channels; ch++ {
		vals, err := c.ReadRange(ch, 0, columns-1)
		if err != nil {
			return nil, fmt.Errorf("read channel %d: %w", ch, err)
		}
		scan.Channels[ch] = vals
	}

	st, err := c.Status()
	if err != nil {
		return nil, fmt.Errorf("status after acquisition: %w", err)
	}
	scan.Clipped = st.Clipped
	return scan, nil
}

// simple sends a command whose entire successful response is one ack.
func (c *Client) simple(cmd string) error {
	if err := c.send(cmd); err != nil {
		return err
	}
	return c.expectAck()
}

func (c *Client) send(cmd string) error {
	if _, err := io.WriteString(c.w, cmd+"\r\n"); err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	return nil
}

// readLine returns the next response line with the terminator stripped.
// Device warnings (buffer overflow diagnostics) are reported on the same
// stream; they are skipped here, not errors.
func (c *Client) readLine() (string, error) {
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "WARNING:") {
			continue
		}
		return line, nil
	}
}

// expectAck consumes one line and requires it to be the acknowledgement.
func (c *Client) expectAck() error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if line == "ok" {
		return nil
	}
	if reason, found := strings.CutPrefix(line, "error: "); found {
		return &RemoteError{Reason: reason}
	}
	return fmt.Errorf("unexpected response %q", line)
}
