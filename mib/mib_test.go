package mib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupExact(t *testing.T) {
	idx := New(RFC1213)
	e, ok := idx.Lookup(".1.3.6.1.2.1.1.1.0")
	require.True(t, ok)
	assert.Equal(t, "sysDescr", e.Name)
}

func TestLookupPrefixStripsTrailingComponents(t *testing.T) {
	idx := New(RFC1213)
	e, ok := idx.LookupPrefix(".1.3.6.1.2.1.2.2.1.2.7")
	require.True(t, ok)
	assert.Equal(t, "ifDescr", e.Name)
}

func TestLookupPrefixNoMatch(t *testing.T) {
	idx := New(RFC1213)
	_, ok := idx.LookupPrefix(".1.2.3.4")
	assert.False(t, ok)
}

func TestLaterTableOverlaysEarlier(t *testing.T) {
	base := Table{{Name: "original", OID: ".1.2.3"}}
	overlay := Table{{Name: "overridden", OID: ".1.2.3"}}
	idx := New(base, overlay)
	e, ok := idx.Lookup(".1.2.3")
	require.True(t, ok)
	assert.Equal(t, "overridden", e.Name)
}
