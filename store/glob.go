package store

// globMatch reports whether s matches pattern using the glob dialect of Redis KEYS/SCAN:
// '*' matches any run of bytes including ':' and '/', '?' one byte, '[...]' a class
// (with '^' negation and 'a-z' ranges) and '\' escapes the next byte.
func globMatch(pattern, s string) bool {
	p, i := 0, 0
	starP, starI := -1, 0

	for i < len(s) {
		if p < len(pattern) {
			switch pattern[p] {
			case '*':
				starP, starI = p, i
				p++
				continue
			case '?':
				p++
				i++
				continue
			case '[':
				if next, ok := matchClass(pattern, p, s[i]); ok {
					p = next
					i++
					continue
				}
			case '\\':
				if p+1 < len(pattern) && pattern[p+1] == s[i] {
					p += 2
					i++
					continue
				}
			default:
				if pattern[p] == s[i] {
					p++
					i++
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		starI++
		p, i = starP+1, starI
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// matchClass matches c against the class opening at pattern[start] and returns the index
// just past the closing bracket.
func matchClass(pattern string, start int, c byte) (int, bool) {
	p := start + 1
	negate := false
	if p < len(pattern) && pattern[p] == '^' {
		negate = true
		p++
	}

	matched := false
	for p < len(pattern) && pattern[p] != ']' {
		lo := pattern[p]
		if lo == '\\' && p+1 < len(pattern) {
			p++
			lo = pattern[p]
		}
		if p+2 < len(pattern) && pattern[p+1] == '-' && pattern[p+2] != ']' {
			hi := pattern[p+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			p += 3
			continue
		}
		if lo == c {
			matched = true
		}
		p++
	}
	if p >= len(pattern) {
		// Unterminated class: treat '[' as a literal.
		return start + 1, c == '['
	}
	return p + 1, matched != negate
}
