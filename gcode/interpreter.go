package gcode

import (
	"io"

	"scancount/core"
)

// Command numbers on the wire.
const (
	cmdReportPosition = 1001
	cmdResetPosition  = 1002
	cmdArm            = 1003
	cmdDisarm         = 1004
	cmdReadRange      = 1005
	cmdResetCounts    = 1006
	cmdStatus         = 1007
)

const (
	ack             = "ok\r\n"
	overflowWarning = "WARNING: input buffer full. Buffered data have been discarded.\r\n"
)

// Transport is the byte-stream collaborator the interpreter is serviced
// from: a readiness check, a byte-at-a-time read, and a writable response
// stream. machine.Serial satisfies it directly on TinyGo targets.
type Transport interface {
	Buffered() int
	ReadByte() (byte, error)
	io.Writer
}

// Interpreter maps assembled command lines onto engine operations and
// writes the line-oriented responses. Runs in foreground context only.
type Interpreter struct {
	eng *core.Engine
	out io.Writer
	asm Assembler
}

// NewInterpreter creates an interpreter producing responses on out.
func NewInterpreter(eng *core.Engine, out io.Writer) *Interpreter {
	return &Interpreter{eng: eng, out: out}
}

// Service drains every byte the transport has ready and executes any
// completed command lines. Returns once the transport runs dry, so the
// caller's poll loop never blocks here.
func (in *Interpreter) Service(t Transport) {
	for t.Buffered() > 0 {
		c, err := t.ReadByte()
		if err != nil {
			return
		}
		in.Feed(c)
	}
}

// Feed consumes one raw transport byte, executing a command when it
// completes a line. Empty lines (the LF of a CRLF pair) are ignored.
func (in *Interpreter) Feed(c byte) {
	line, complete, overflow := in.asm.Feed(c)
	if overflow {
		io.WriteString(in.out, overflowWarning)
	}
	if complete && line != "" {
		in.Exec(line)
	}
}

// Exec runs one command line. Every path writes exactly one response:
// an acknowledgement (with payload for read-range and status) or a
// single error line. Unrecognized input echoes the offending line.
func (in *Interpreter) Exec(line string) {
	req, ok := ParseLine(line)
	if !ok {
		in.unknown(line)
		return
	}

	switch req.Code {
	case cmdReportPosition:
		if len(req.Args) != 0 || req.BadArgs {
			in.unknown(line)
			return
		}
		in.writeAck()
		in.writeLine(appendInt(nil, in.eng.Position()))

	case cmdResetPosition:
		if len(req.Args) != 0 || req.BadArgs {
			in.unknown(line)
			return
		}
		if err := in.eng.ResetPosition(); err != nil {
			in.writeError("cannot reset position while counter is active")
			return
		}
		in.writeAck()

	case cmdArm:
		if len(req.Args) != 0 || req.BadArgs {
			in.unknown(line)
			return
		}
		if err := in.eng.Arm(); err != nil {
			in.writeError(err.Error())
			return
		}
		in.writeAck()

	case cmdDisarm:
		if len(req.Args) != 0 || req.BadArgs {
			in.unknown(line)
			return
		}
		if err := in.eng.Disarm(); err != nil {
			in.writeError(err.Error())
			return
		}
		in.writeAck()

	case cmdReadRange:
		in.execRead(req)

	case cmdResetCounts:
		if len(req.Args) != 0 || req.BadArgs {
			in.unknown(line)
			return
		}
		if err := in.eng.ResetCounts(); err != nil {
			in.writeError("cannot reset counter while it is active")
			return
		}
		in.writeAck()

	case cmdStatus:
		if len(req.Args) != 0 || req.BadArgs {
			in.unknown(line)
			return
		}
		in.execStatus()

	default:
		in.unknown(line)
	}
}

// execRead validates and answers a read-range request. Checks run in a
// fixed order the hosts rely on: capture state, argument shape, channel,
// bounds.
func (in *Interpreter) execRead(req Request) {
	if in.eng.Armed() {
		in.writeError("cannot read counter while it is active")
		return
	}
	if req.BadArgs || len(req.Args) != 3 {
		in.writeError("read command requires three arguments")
		return
	}
	channel, start, end := req.Args[0], req.Args[1], req.Args[2]
	top := in.eng.Columns() - 1

	if channel < 0 || channel >= in.eng.Channels() {
		in.writeError("channel must be in the range 0.." + uitoa(uint32(in.eng.Channels()-1)))
		return
	}
	if start < 0 || start > top {
		in.writeError("start column must be in the range 0.." + uitoa(uint32(top)))
		return
	}
	if end < 0 || end > top {
		in.writeError("end column must be in the range 0.." + uitoa(uint32(top)))
		return
	}
	if start > end {
		in.writeError("start column must be less than or equal to end column")
		return
	}

	in.writeAck()

	// Stream the payload in small chunks rather than building the whole
	// line; a full-capacity read would otherwise allocate tens of
	// kilobytes on the device.
	scratch := make([]byte, 0, 64)
	for col := start; col <= end; col++ {
		scratch = appendUint(scratch, uint32(in.eng.At(channel, col)))
		scratch = append(scratch, ' ')
		if len(scratch) >= 48 {
			in.out.Write(scratch)
			scratch = scratch[:0]
		}
	}
	scratch = append(scratch, '\r', '\n')
	in.out.Write(scratch)

	in.writeAck()
}

// execStatus answers the status query: armed flag, position, and the
// per-channel saturation mask, framed like a read payload.
func (in *Interpreter) execStatus() {
	st := in.eng.Status()

	in.writeAck()
	scratch := make([]byte, 0, 48)
	scratch = append(scratch, "armed="...)
	if st.Armed {
		scratch = append(scratch, '1')
	} else {
		scratch = append(scratch, '0')
	}
	scratch = append(scratch, " position="...)
	scratch = appendInt(scratch, st.Position)
	scratch = append(scratch, " clipped="...)
	scratch = appendUint(scratch, uint32(st.Clipped))
	in.writeLine(scratch)
	in.writeAck()
}

func (in *Interpreter) writeAck() {
	io.WriteString(in.out, ack)
}

func (in *Interpreter) writeLine(payload []byte) {
	payload = append(payload, '\r', '\n')
	in.out.Write(payload)
}

func (in *Interpreter) writeError(reason string) {
	io.WriteString(in.out, "error: "+reason+"\r\n")
}

func (in *Interpreter) unknown(line string) {
	io.WriteString(in.out, "error: unknown command '"+line+"'\r\n")
}

func uitoa(v uint32) string {
	return string(appendUint(nil, v))
}
