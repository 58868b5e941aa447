package gosnmp

import (
	"strconv"
	"strings"
)

// OID is a sequence of sub-identifiers, e.g. 1.3.6.1.2.1.1.1.0. Methods
// return new slices; callers should treat an OID as immutable.
type OID []uint32

// ParseOID parses a dotted-decimal string such as ".1.3.6.1.2.1" or
// "1.3.6.1.2.1" into an OID.
func ParseOID(s string) (OID, error) {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, syntaxErrorf("empty oid")
	}
	parts := strings.Split(s, ".")
	oid := make(OID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, syntaxErrorf("invalid oid component %q", p)
		}
		oid = append(oid, uint32(n))
	}
	return oid, oid.Validate()
}

// Validate reports whether the OID satisfies the canonical-form constraints:
// at least two components, first component in {0,1,2}, and when the first
// component is 0 or 1 the second must be in [0,39].
func (o OID) Validate() error {
	if len(o) < 2 {
		return syntaxErrorf("oid must have at least 2 components")
	}
	if o[0] > 2 {
		return syntaxErrorf("oid first component must be 0, 1 or 2")
	}
	if o[0] < 2 && o[1] > 39 {
		return syntaxErrorf("oid second component out of range for first component %d", o[0])
	}
	return nil
}

// String renders the OID in leading-dot dotted-decimal form, e.g.
// ".1.3.6.1.2.1.1.1.0".
func (o OID) String() string {
	var b strings.Builder
	for _, c := range o {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	return b.String()
}

// Equal reports whether o and other have identical components.
func (o OID) Equal(other OID) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether o starts with every component of prefix.
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix) > len(o) {
		return false
	}
	for i := range prefix {
		if o[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 comparing o to other component-wise, shorter
// sequences ordering before longer ones when equal on the common prefix
// (lexicographic order, matching OID ordering used by GetNext/walk).
func (o OID) Compare(other OID) int {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if o[i] != other[i] {
			if o[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	default:
		return 0
	}
}

// Clone returns a copy of the OID.
func (o OID) Clone() OID {
	c := make(OID, len(o))
	copy(c, o)
	return c
}

// Append returns a new OID with the given components appended.
func (o OID) Append(components ...uint32) OID {
	c := make(OID, 0, len(o)+len(components))
	c = append(c, o...)
	c = append(c, components...)
	return c
}
