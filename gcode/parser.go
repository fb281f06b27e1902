// Line parsing for the counter's M-code command surface.
// Commands are short ASCII lines ("M1005 0 0 7999"); parsing is done by
// hand so the same code runs under TinyGo without fmt.
package gcode

// Request is one parsed command line: an M-code number and its integer
// arguments. BadArgs is set when the line carried argument text that did
// not parse as integers; the argument-shape error is reported separately
// from out-of-domain values.
type Request struct {
	Code    int
	Args    []int
	BadArgs bool
}

// ParseLine splits a line into an M-code request. ok is false when the
// line does not start with an M-number at all; the caller reports those
// as unknown commands.
func ParseLine(line string) (Request, bool) {
	var req Request

	i := skipSpace(line, 0)
	if i >= len(line) || (line[i] != 'M' && line[i] != 'm') {
		return req, false
	}
	i++

	num, next := parseInt(line, i)
	if next == i {
		return req, false
	}
	req.Code = num
	i = next

	for {
		i = skipSpace(line, i)
		if i >= len(line) {
			return req, true
		}
		val, next := parseInt(line, i)
		if next == i {
			// Non-numeric argument text
			req.BadArgs = true
			return req, true
		}
		req.Args = append(req.Args, val)
		i = next
	}
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

// parseInt parses a decimal integer from the string starting at pos.
// Returns the value and the position after it; the position is unchanged
// when no digits were found.
func parseInt(s string, pos int) (int, int) {
	start := pos

	negative := false
	if pos < len(s) && (s[pos] == '-' || s[pos] == '+') {
		negative = s[pos] == '-'
		pos++
	}

	digits := pos
	value := 0
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		value = value*10 + int(s[pos]-'0')
		pos++
	}
	if pos == digits {
		return 0, start // no digits found
	}

	if negative {
		value = -value
	}
	return value, pos
}

// appendUint appends the decimal form of v, least significant digit
// computed first into a small scratch buffer.
func appendUint(dst []byte, v uint32) []byte {
	if v == 0 {
		return append(dst, '0')
	}
	var tmp [10]byte
	pos := len(tmp)
	for v > 0 {
		pos--
		tmp[pos] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, tmp[pos:]...)
}

// appendInt appends the decimal form of a signed value.
func appendInt(dst []byte, v int32) []byte {
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	return appendUint(dst, uint32(v))
}
