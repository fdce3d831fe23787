package expr

// DecodeLiteral interprets the text of an integer literal. A 0x prefix
// selects hexadecimal, 0b binary, any other leading 0 octal, and everything
// else decimal. Decoding stops at the first character that is not a digit of
// the selected radix; an empty literal decodes to 0.
func DecodeLiteral(text string) int64 {
	if text == "" {
		return 0
	}

	base, digits := radixOf(text)
	var result int64
	for i := 0; i < len(digits); i++ {
		d, ok := digitValue(digits[i], base)
		if !ok {
			break
		}
		result = result*base + d
	}
	return result
}

// radixOf returns the base of text and the digits following its prefix.
func radixOf(text string) (int64, string) {
	if text[0] != '0' {
		return 10, text
	}
	if len(text) > 1 {
		switch text[1] {
		case 'x':
			return 16, text[2:]
		case 'b':
			return 2, text[2:]
		}
	}
	return 8, text[1:]
}

func digitValue(ch byte, base int64) (int64, bool) {
	var d int64
	switch {
	case ch >= '0' && ch <= '9':
		d = int64(ch - '0')
	case ch >= 'a' && ch <= 'f':
		d = int64(ch-'a') + 10
	case ch >= 'A' && ch <= 'F':
		d = int64(ch-'A') + 10
	default:
		return 0, false
	}
	if d >= base {
		return 0, false
	}
	return d, true
}
