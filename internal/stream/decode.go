package stream

import (
	"strings"
	"unicode/utf8"
)

// chunkDecoder turns raw stream bytes into text fragments. When a read ends
// in the middle of a multi-byte UTF-8 rune, the incomplete tail is held back
// and prepended to the next read so no rune ever decodes torn in half.
type chunkDecoder struct {
	carry []byte
}

// decode consumes one read's worth of bytes and returns the decodable text.
// Outright invalid sequences decode to replacement runes so torn bytes never
// reach annotation text. The input slice may be reused by the caller after
// decode returns.
func (d *chunkDecoder) decode(p []byte) string {
	data := p
	if len(d.carry) > 0 {
		data = append(d.carry, p...)
		d.carry = nil
	}
	if n := incompleteTailLen(data); n > 0 {
		d.carry = append([]byte(nil), data[len(data)-n:]...)
		data = data[:len(data)-n]
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// flush returns whatever is still held back. A partial rune dangling at
// end-of-stream decodes to the replacement character rather than vanishing.
func (d *chunkDecoder) flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(d.carry), string(utf8.RuneError))
	d.carry = nil
	return out
}

// incompleteTailLen reports how many trailing bytes of p are the prefix of a
// multi-byte rune whose remaining bytes have not arrived yet. Complete runes
// and outright invalid sequences report zero; they are not held back.
func incompleteTailLen(p []byte) int {
	for i := 1; i <= utf8.UTFMax && i <= len(p); i++ {
		b := p[len(p)-i]
		if !utf8.RuneStart(b) {
			continue
		}
		if b < utf8.RuneSelf {
			return 0
		}
		var size int
		switch {
		case b&0xE0 == 0xC0:
			size = 2
		case b&0xF0 == 0xE0:
			size = 3
		case b&0xF8 == 0xF0:
			size = 4
		default:
			return 0
		}
		if i < size {
			return i
		}
		return 0
	}
	return 0
}
