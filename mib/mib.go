// Package mib provides a small, explicitly constructed OID-to-name lookup,
// standing in for a full MIB compiler: a fixed handful of well-known
// system/interface objects, enough for a trap listener or CLI walker to
// resolve names without parsing MIB text.
package mib

import "strings"

// Entry names a single MIB object.
type Entry struct {
	Name string
	OID  string
}

// Table is an ordered list of Entry values, such as RFC1213.
type Table []Entry

// Index is a constructed, read-only OID->Entry lookup.
type Index struct {
	byOID map[string]Entry
}

// New builds an Index from one or more tables, in order. Where two tables
// define the same OID, the later table wins — callers pass base tables
// first and overlays last, e.g. New(RFC1213, SNMPv2SMI).
func New(tables ...Table) *Index {
	idx := &Index{byOID: make(map[string]Entry)}
	for _, t := range tables {
		for _, e := range t {
			idx.byOID[e.OID] = e
		}
	}
	return idx
}

// Lookup returns the Entry exactly matching oid.
func (idx *Index) Lookup(oid string) (Entry, bool) {
	e, ok := idx.byOID[oid]
	return e, ok
}

// LookupPrefix returns the Entry for the longest known prefix of oid,
// stripping trailing components (typically a table row's instance
// indices) one at a time until a match is found or none remains.
func (idx *Index) LookupPrefix(oid string) (Entry, bool) {
	for oid != "" {
		if e, ok := idx.byOID[oid]; ok {
			return e, true
		}
		i := strings.LastIndex(oid, ".")
		if i <= 0 {
			break
		}
		oid = oid[:i]
	}
	return Entry{}, false
}

// RFC1213 seeds the handful of system and interface-table objects used by
// the trap listener and the snmpwalk example.
var RFC1213 = Table{
	{Name: "sysDescr", OID: ".1.3.6.1.2.1.1.1.0"},
	{Name: "sysObjectID", OID: ".1.3.6.1.2.1.1.2.0"},
	{Name: "sysUpTime", OID: ".1.3.6.1.2.1.1.3.0"},
	{Name: "ifNumber", OID: ".1.3.6.1.2.1.2.1.0"},
	{Name: "ifIndex", OID: ".1.3.6.1.2.1.2.2.1.1"},
	{Name: "ifDescr", OID: ".1.3.6.1.2.1.2.2.1.2"},
	{Name: "ifType", OID: ".1.3.6.1.2.1.2.2.1.3"},
	{Name: "ifSpeed", OID: ".1.3.6.1.2.1.2.2.1.5"},
	{Name: "ifAdminStatus", OID: ".1.3.6.1.2.1.2.2.1.7"},
	{Name: "ifOperStatus", OID: ".1.3.6.1.2.1.2.2.1.8"},
}

// SNMPv2SMI seeds snmpTrapOID and the four generic SNMPv2 trap OIDs
// (coldStart, warmStart, linkDown, linkUp), an overlay applied after
// RFC1213.
var SNMPv2SMI = Table{
	{Name: "snmpTrapOID", OID: ".1.3.6.1.6.3.1.1.4.1.0"},
	{Name: "coldStart", OID: ".1.3.6.1.6.3.1.1.5.1"},
	{Name: "warmStart", OID: ".1.3.6.1.6.3.1.1.5.2"},
	{Name: "linkDown", OID: ".1.3.6.1.6.3.1.1.5.3"},
	{Name: "linkUp", OID: ".1.3.6.1.6.3.1.1.5.4"},
}
