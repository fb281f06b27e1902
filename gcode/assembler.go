package gcode

// MaxLine is the longest accepted command line, excluding the terminator.
const MaxLine = 255

// Assembler builds command lines from a byte-at-a-time transport. Lines
// end at CR or LF; a line longer than MaxLine loses its buffered prefix,
// so once a terminator finally arrives only the last MaxLine or fewer
// bytes are interpreted.
type Assembler struct {
	buf [MaxLine]byte
	n   int
}

// Feed consumes one byte. complete is true when c terminated a line (the
// line may be empty, e.g. the LF of a CRLF pair); overflow is true when
// the buffer filled and its content was discarded, once per overflow
// cycle.
func (a *Assembler) Feed(c byte) (line string, complete bool, overflow bool) {
	if c == '\r' || c == '\n' {
		line = string(a.buf[:a.n])
		a.n = 0
		return line, true, false
	}

	if a.n == MaxLine {
		a.n = 0
		overflow = true
	}
	a.buf[a.n] = c
	a.n++
	return "", false, overflow
}

// Reset discards any partially assembled line.
func (a *Assembler) Reset() {
	a.n = 0
}
