package gosnmp

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/cesbit/gosnmp/mib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrapListenerReceivesV2cTrap(t *testing.T) {
	idx := mib.New(mib.RFC1213, mib.SNMPv2SMI)
	traps := make(chan Trap, 1)
	listener, err := NewTrapListener(0, idx, func(tr Trap) { traps <- tr })
	require.NoError(t, err)
	defer listener.Close()
	go listener.Serve()

	port := listener.conn.LocalAddr().(*net.UDPAddr).Port
	raddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	conn, err := net.DialUDP("udp", nil, raddr)
	require.NoError(t, err)
	defer conn.Close()

	data := EncodeMessage(Version2c, "public", TagTrapV2, PDU{
		RequestID: 1,
		VarBinds: []VariableBinding{
			{Name: mustOID(t, ".1.3.6.1.2.1.1.3.0"), Value: int64(42)},
			{Name: mustOID(t, ".1.3.6.1.6.3.1.1.4.1.0"), Value: mustOID(t, ".1.3.6.1.6.3.1.1.5.1")},
		},
	})
	_, err = conn.Write(data)
	require.NoError(t, err)

	select {
	case tr := <-traps:
		require.Len(t, tr.VarBinds, 2)
		require.NotNil(t, tr.VarBinds[0].Entry)
		assert.Equal(t, "sysUpTime", tr.VarBinds[0].Entry.Name)
		require.NotNil(t, tr.VarBinds[1].Entry)
		assert.Equal(t, "coldStart", tr.VarBinds[1].Entry.Name, "OID-typed value resolves by its own value, not a blind truncation")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trap")
	}
}

func TestConvertVarbindDoesNotTruncateNonOIDValues(t *testing.T) {
	idx := mib.New(mib.RFC1213)
	vb := VariableBinding{Name: mustOID(t, ".1.3.6.1.2.1.1.1.0"), Value: []byte("plain string value")}
	rv := convertVarbind(vb, idx)
	require.NotNil(t, rv.Entry)
	assert.Equal(t, "sysDescr", rv.Entry.Name)
}
