package keyword

import "unicode"

// soundexDigits maps A..Z to American Soundex digits. Zero marks vowels and Y,
// which separate repeated codes; H and W are handled separately.
var soundexDigits = [26]byte{
	0, '1', '2', '3', 0, '1', '2', 0, 0, '2', '2', '4', '5',
	'5', 0, '1', '2', '6', '2', '3', 0, '1', 0, '2', 0, '2',
}

// Soundex returns the four-character American Soundex code of s: the first
// letter followed by three digits, zero padded. Letters outside A..Z are
// ignored. H and W do not separate consonants with the same code. An input
// without ASCII letters yields "".
func Soundex(s string) string {
	var code [4]byte
	n := 0
	var last byte

	for _, r := range s {
		r = unicode.ToUpper(r)
		if r < 'A' || r > 'Z' {
			continue
		}
		c := byte(r)
		digit := soundexDigits[c-'A']
		if n == 0 {
			code[0] = c
			n = 1
			last = digit
			continue
		}
		if c == 'H' || c == 'W' {
			continue
		}
		if digit == 0 {
			last = 0
			continue
		}
		if digit != last {
			code[n] = digit
			n++
			if n == len(code) {
				break
			}
		}
		last = digit
	}

	if n == 0 {
		return ""
	}
	for ; n < len(code); n++ {
		code[n] = '0'
	}
	return string(code[:])
}
