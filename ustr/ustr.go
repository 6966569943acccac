// Package ustr provides the immutable byte-string type used for the
// forward-slash plugin paths and short kernel names (process short name,
// module short name) that flow through the plugin dispatch tree.
package ustr

// Ustr is an immutable path or name. Paths on the plugin surface are always
// forward-slash (spec.md §9 "Windows-specific path separators"); any
// backslash normalization happens once at the boundary, see Normalize.
type Ustr []uint8

// Eq compares two Ustr values for equality.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

// Mk creates an Ustr from a Go string.
func Mk(s string) Ustr { return Ustr(s) }

// MkFromNul converts a NUL-terminated byte slice to an Ustr, truncating at
// the first NUL. Used when decoding fixed-width kernel name fields (the
// 15-byte short process name, spec.md §3).
func MkFromNul(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == 0 {
			return buf[:i]
		}
	}
	return buf
}

// IsAbsolute reports whether the path begins with '/'.
func (us Ustr) IsAbsolute() bool {
	return len(us) > 0 && us[0] == '/'
}

// IndexByte returns the index of b in the string or -1 if not present.
func (us Ustr) IndexByte(b uint8) int {
	for i, v := range us {
		if v == b {
			return i
		}
	}
	return -1
}

// Split splits the path at the first '/', returning the first component and
// the remainder (without the separator). Used by the plugin dispatcher to
// peel off "pid"/"name"/a root plugin's mount point one segment at a time.
func (us Ustr) Split() (head Ustr, rest Ustr, hasRest bool) {
	i := us.IndexByte('/')
	if i < 0 {
		return us, nil, false
	}
	return us[:i], us[i+1:], true
}

// Normalize replaces backslashes with forward slashes and trims a leading
// slash, the one pure string-normalization step spec.md §9 allows at the
// boundary.
func Normalize(s string) Ustr {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			c = '/'
		}
		b[i] = c
	}
	us := Ustr(b)
	for len(us) > 0 && us[0] == '/' {
		us = us[1:]
	}
	return us
}

// String converts the Ustr to a Go string.
func (us Ustr) String() string { return string(us) }
