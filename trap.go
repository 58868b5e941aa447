package gosnmp

import (
	"net"

	"github.com/cesbit/gosnmp/mib"
)

// TagTrapV1 is the SNMPv1 Trap-PDU implicit tag (RFC 1157 §4.1.6); unlike
// every other PDU it does not share the request-id/error-status/
// error-index/varbinds shape.
const TagTrapV1 uint32 = 4

// TrapV1PDU is an SNMPv1 trap.
type TrapV1PDU struct {
	Enterprise   OID
	AgentAddr    []byte
	GenericTrap  int
	SpecificTrap int
	Timestamp    int64
	VarBinds     []VariableBinding
}

func decodeTrapV1PDU(d *Decoder) (TrapV1PDU, error) {
	if err := d.Enter(); err != nil {
		return TrapV1PDU{}, err
	}
	var p TrapV1PDU
	_, v, err := d.Read()
	if err != nil {
		return p, err
	}
	p.Enterprise, _ = v.(OID)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	p.AgentAddr, _ = v.([]byte)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	gt, _ := bigIntOrInt64(v)
	p.GenericTrap = int(gt)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	st, _ := bigIntOrInt64(v)
	p.SpecificTrap = int(st)

	_, v, err = d.Read()
	if err != nil {
		return p, err
	}
	ts, _ := bigIntOrInt64(v)
	p.Timestamp = ts

	vbs, err := decodeVarBindList(d)
	if err != nil {
		return p, err
	}
	p.VarBinds = vbs

	if err := d.Leave(); err != nil {
		return p, err
	}
	return p, nil
}

// Trap is a received, name-resolved trap notification ready for a sink.
type Trap struct {
	Addr      net.Addr
	Community string
	VarBinds  []ResolvedVarBind
}

// ResolvedVarBind pairs a decoded VariableBinding with its MIB Entry, when
// known.
type ResolvedVarBind struct {
	VariableBinding
	Entry *mib.Entry
}

// TrapSink receives each decoded, name-resolved trap.
type TrapSink func(Trap)

// TrapListener is a passive UDP receiver for SNMPv1/v2c traps.
type TrapListener struct {
	conn   *net.UDPConn
	mibIdx *mib.Index
	logger Logger
	sink   TrapSink
	stopCh chan struct{}
}

// NewTrapListener binds a UDP socket on port and resolves varbind names
// against idx (nil selects an index built from mib.RFC1213 and
// mib.SNMPv2SMI).
func NewTrapListener(port int, idx *mib.Index, sink TrapSink) (*TrapListener, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	if idx == nil {
		idx = mib.New(mib.RFC1213, mib.SNMPv2SMI)
	}
	return &TrapListener{
		conn:   conn,
		mibIdx: idx,
		logger: discardLogger{},
		sink:   sink,
		stopCh: make(chan struct{}),
	}, nil
}

// SetLogger installs l as the listener's Logger.
func (l *TrapListener) SetLogger(logger Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Serve reads and dispatches traps until Close is called.
func (l *TrapListener) Serve() error {
	buf := make([]byte, 65535)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.stopCh:
				return nil
			default:
				return err
			}
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		l.handle(data, addr)
	}
}

// Close stops Serve and releases the socket.
func (l *TrapListener) Close() error {
	close(l.stopCh)
	return l.conn.Close()
}

func (l *TrapListener) handle(data []byte, addr net.Addr) {
	ver, err := PeekVersion(data)
	if err != nil {
		l.logger.Printf("snmp trap: failed to peek version from %v: %v", addr, err)
		return
	}

	d := NewDecoder(data)
	if err := d.Enter(); err != nil {
		l.logger.Printf("snmp trap: malformed envelope from %v: %v", addr, err)
		return
	}
	if _, _, err := d.Read(); err != nil { // version, already peeked
		l.logger.Printf("snmp trap: malformed version from %v: %v", addr, err)
		return
	}
	_, commVal, err := d.Read()
	if err != nil {
		l.logger.Printf("snmp trap: malformed community from %v: %v", addr, err)
		return
	}
	commBytes, _ := commVal.([]byte)

	var vbs []VariableBinding
	if ver == Version1 {
		p, err := decodeTrapV1PDU(d)
		if err != nil {
			l.logger.Printf("snmp trap: malformed v1 trap-pdu from %v: %v", addr, err)
			return
		}
		vbs = p.VarBinds
	} else {
		_, pdu, err := decodePDUFrom(d)
		if err != nil {
			l.logger.Printf("snmp trap: malformed v2c trap-pdu from %v: %v", addr, err)
			return
		}
		vbs = pdu.VarBinds
	}

	trap := Trap{Addr: addr, Community: string(commBytes)}
	for _, vb := range vbs {
		trap.VarBinds = append(trap.VarBinds, convertVarbind(vb, l.mibIdx))
	}
	if l.sink != nil {
		l.sink(trap)
	}
}

// convertVarbind resolves vb's MIB name, applying an OID-typed-value guard
// for table-column value resolution: only when vb's own value is itself an
// OID does truncating its last component for a row-instance-agnostic
// lookup make sense. The original implementation's trap demultiplexer
// applied that same truncation unconditionally, which broke on any
// non-OID-valued trap varbind; this guard is the fix.
func convertVarbind(vb VariableBinding, idx *mib.Index) ResolvedVarBind {
	rv := ResolvedVarBind{VariableBinding: vb}
	if idx == nil {
		return rv
	}
	if oidVal, ok := vb.Value.(OID); ok && len(oidVal) > 0 {
		if e, ok := idx.LookupPrefix(oidVal.String()); ok {
			rv.Entry = &e
			return rv
		}
	}
	if e, ok := idx.Lookup(vb.Name.String()); ok {
		rv.Entry = &e
		return rv
	}
	if e, ok := idx.LookupPrefix(vb.Name.String()); ok {
		rv.Entry = &e
	}
	return rv
}
