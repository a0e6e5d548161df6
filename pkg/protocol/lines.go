package protocol

// NextLine returns the index of the first character after the next run of CR/LF characters,
// starting the search at pos. It reports false when there is no further line, or when the next
// line starts with a NUL byte (the logical end of a fixed size buffer).
func NextLine(buf string, pos int) (int, bool) {
	crlf := false
	for i := pos; i < len(buf); i++ {
		c := buf[i]
		if c == '\r' || c == '\n' {
			crlf = true
			continue
		}
		if crlf {
			if c == 0 {
				return 0, false
			}
			return i, true
		}
	}
	return 0, false
}

// LineEnd returns the index of the CR, LF or NUL that terminates the line starting at pos, or
// len(buf) if the line runs to the end of the buffer.
func LineEnd(buf string, pos int) int {
	for i := pos; i < len(buf); i++ {
		switch buf[i] {
		case '\r', '\n', 0:
			return i
		}
	}
	return len(buf)
}

// MatchParameter checks that reply starts with the parameter name param and returns the value
// that follows it. Numeric tokens compare equal regardless of leading zeros ("ch01" matches
// "ch1") and any run of blanks matches any other run of blanks.
func MatchParameter(reply, param string) (string, bool) {
	i, j := 0, 0
	lastDigit := false
	for j < len(param) {
		if !lastDigit {
			for j < len(param) && param[j] == '0' {
				j++
			}
			for i < len(reply) && reply[i] == '0' {
				i++
			}
			if j == len(param) {
				break
			}
		}
		if i >= len(reply) || reply[i] != param[j] {
			return "", false
		}
		if param[j] == ' ' {
			for j < len(param) && param[j] == ' ' {
				j++
			}
			for i < len(reply) && reply[i] == ' ' {
				i++
			}
			lastDigit = false
			continue
		}
		lastDigit = isDigit(param[j])
		i++
		j++
	}

	if i < len(reply) && reply[i] != ' ' {
		return "", false
	}
	for i < len(reply) && reply[i] == ' ' {
		i++
	}
	return reply[i:], true
}
