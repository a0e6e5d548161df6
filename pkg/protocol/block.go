package protocol

import "strings"

// Block receives the values of one bracketed group. Integers and reals are collected in the
// order they appear in the format string.
type Block struct {
	Ints  []int
	Reals []float64
}

// Reset empties the block while keeping its storage.
func (b *Block) Reset() {
	b.Ints = b.Ints[:0]
	b.Reals = b.Reals[:0]
}

// ScanBlock locates the next "[...]" group in s and reads one value per format character:
// 'i' integer, 'f' single precision real, 'd' double precision real. Content after the last
// requested value is ignored. Values are appended to b; on failure b is left as it was.
func ScanBlock(s, format string, b *Block) (string, error) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return s, parseErr("expected '['")
	}
	closing := strings.IndexByte(s[open+1:], ']')
	if closing < 0 {
		return s, parseErr("expected ']'")
	}
	inner := s[open+1 : open+1+closing]
	rest := s[open+1+closing+1:]

	ni, nr := len(b.Ints), len(b.Reals)
	fail := func(err error) (string, error) {
		b.Ints = b.Ints[:ni]
		b.Reals = b.Reals[:nr]
		return s, err
	}

	cur := inner
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case 'i':
			v, r, err := Int(cur)
			if err != nil {
				return fail(err)
			}
			b.Ints = append(b.Ints, v)
			cur = r
		case 'f':
			v, r, err := Float32(cur)
			if err != nil {
				return fail(err)
			}
			b.Reals = append(b.Reals, v)
			cur = r
		case 'd':
			v, r, err := Float64(cur)
			if err != nil {
				return fail(err)
			}
			b.Reals = append(b.Reals, v)
			cur = r
		default:
			return fail(parseErr("unknown block format %q", format[i]))
		}
	}

	return rest, nil
}
