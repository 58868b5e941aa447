package gosnmp

import (
	"context"
	"time"
)

// Client is the common surface both the community-based (v1/v2c) and USM
// (v3) clients implement, matching SPEC_FULL.md §6.
type Client interface {
	Connect(ctx context.Context) error
	Get(ctx context.Context, oid OID) (VariableBinding, error)
	GetNext(ctx context.Context, oid OID) (VariableBinding, error)
	GetNextMulti(ctx context.Context, oids []OID) ([]VariableBinding, error)
	Walk(ctx context.Context, root OID, isTable bool) ([]VariableBinding, error)
	Close() error
}

// pduRoundTripper is the minimal surface Get/GetNext/GetNextMulti/Walk are
// implemented against, so the walk algorithm (the part most worth keeping
// identical between v1/v2c and v3) is written once.
type pduRoundTripper interface {
	doPDU(ctx context.Context, pduNr uint32, vbs []VariableBinding) (PDU, error)
	getBulk(ctx context.Context, nonRepeaters, maxRepetitions int, vbs []VariableBinding) (PDU, error)
	usesGetNextWalk() bool
	rowCap() int
}

func get(ctx context.Context, rt pduRoundTripper, oid OID) (VariableBinding, error) {
	pdu, err := rt.doPDU(ctx, TagGetRequest, []VariableBinding{{Name: oid}})
	if err != nil {
		return VariableBinding{}, err
	}
	if len(pdu.VarBinds) == 0 {
		return VariableBinding{}, &DecodeError{Context: "get", Err: syntaxErrorf("empty response")}
	}
	return pdu.VarBinds[0], nil
}

func getNext(ctx context.Context, rt pduRoundTripper, oid OID) (VariableBinding, error) {
	pdu, err := rt.doPDU(ctx, TagGetNextRequest, []VariableBinding{{Name: oid}})
	if err != nil {
		return VariableBinding{}, err
	}
	if len(pdu.VarBinds) == 0 {
		return VariableBinding{}, &DecodeError{Context: "get-next", Err: syntaxErrorf("empty response")}
	}
	return pdu.VarBinds[0], nil
}

func getNextMulti(ctx context.Context, rt pduRoundTripper, oids []OID) ([]VariableBinding, error) {
	vbs := make([]VariableBinding, len(oids))
	for i, oid := range oids {
		vbs[i] = VariableBinding{Name: oid}
	}
	pdu, err := rt.doPDU(ctx, TagGetNextRequest, vbs)
	if err != nil {
		return nil, err
	}
	result := make([]VariableBinding, 0, len(pdu.VarBinds))
	for i, vb := range pdu.VarBinds {
		if i < len(oids) && len(vb.Name) == len(oids[i])+1 && vb.Name.HasPrefix(oids[i]) {
			result = append(result, vb)
		}
	}
	return result, nil
}

// walk implements spec.md's walk operation: for v1 (usesGetNextWalk) it
// loops GetNext until NoSuchName or a reply outside root's subtree; for
// v2c/v3 it loops GetBulk, terminating on EndOfMibView, a non-increasing
// OID, or leaving root's subtree. isTable is the spec's explicit
// resolution marker for scalar vs. tabular groups; for a scalar group the
// single leaf instance already falls outside root's own prefix on the very
// next GetNext/GetBulk reply, so no separate row-index bookkeeping is
// needed beyond the root prefix check itself.
func walk(ctx context.Context, rt pduRoundTripper, root OID, isTable bool) ([]VariableBinding, error) {
	var result []VariableBinding
	current := root

	if rt.usesGetNextWalk() {
		for {
			if len(result) >= rt.rowCap() {
				return result, &ErrTooManyRows{Limit: rt.rowCap()}
			}
			vb, err := getNext(ctx, rt, current)
			if err != nil {
				if se, ok := err.(*StatusError); ok && se.Status == StatusNoSuchName {
					return result, nil
				}
				return result, err
			}
			if exc, ok := vb.Exception(); ok && exc == ExcEndOfMibView {
				return result, nil
			}
			if !vb.Name.HasPrefix(root) {
				return result, nil
			}
			if vb.Name.Compare(current) <= 0 {
				return result, syntaxErrorf("oid not increasing: %s", vb.Name)
			}
			result = append(result, vb)
			current = vb.Name
		}
	}

	const maxRepetitions = 10
	for {
		pdu, err := rt.getBulk(ctx, 0, maxRepetitions, []VariableBinding{{Name: current}})
		if err != nil {
			return result, err
		}
		if len(pdu.VarBinds) == 0 {
			return result, nil
		}
		for _, vb := range pdu.VarBinds {
			if exc, ok := vb.Exception(); ok && exc == ExcEndOfMibView {
				return result, nil
			}
			if !vb.Name.HasPrefix(root) {
				return result, nil
			}
			if vb.Name.Compare(current) <= 0 {
				return result, syntaxErrorf("oid not increasing: %s", vb.Name)
			}
			result = append(result, vb)
			current = vb.Name
			if len(result) >= rt.rowCap() {
				return result, &ErrTooManyRows{Limit: rt.rowCap()}
			}
		}
	}
}

// ---- ClientV1V2: SNMPv1 / SNMPv2c ----

// Option configures a ClientV1V2.
type Option func(*ClientV1V2)

// WithPort overrides the default agent port (161).
func WithPort(port int) Option { return func(c *ClientV1V2) { c.port = port } }

// WithCommunity overrides the default community string ("public").
func WithCommunity(s string) Option { return func(c *ClientV1V2) { c.community = s } }

// WithMaxRows overrides the default Walk row cap (1000).
func WithMaxRows(n int) Option { return func(c *ClientV1V2) { c.maxRows = n } }

// WithTimeouts overrides the default retry schedule.
func WithTimeouts(ts []time.Duration) Option { return func(c *ClientV1V2) { c.timeouts = ts } }

// WithLogger installs a Logger.
func WithLogger(l Logger) Option { return func(c *ClientV1V2) { c.logger = l } }

// ClientV1V2 is a community-based (v1 or v2c) SNMP client.
type ClientV1V2 struct {
	host      string
	port      int
	version   Version
	community string
	maxRows   int
	timeouts  []time.Duration
	logger    Logger
	transport *Transport
}

// NewV1 constructs an SNMPv1 client.
func NewV1(host string, opts ...Option) (*ClientV1V2, error) {
	return newClientV1V2(Version1, host, opts...)
}

// NewV2c constructs an SNMPv2c client.
func NewV2c(host string, opts ...Option) (*ClientV1V2, error) {
	return newClientV1V2(Version2c, host, opts...)
}

func newClientV1V2(version Version, host string, opts ...Option) (*ClientV1V2, error) {
	c := &ClientV1V2{
		host:      host,
		port:      161,
		version:   version,
		community: "public",
		maxRows:   1000,
		logger:    discardLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect opens the underlying UDP socket.
func (c *ClientV1V2) Connect(ctx context.Context) error {
	t, err := DialUDP(c.host, c.port)
	if err != nil {
		return err
	}
	t.SetLogger(c.logger)
	t.SetTimeouts(c.timeouts)
	c.transport = t
	return nil
}

// Close releases the underlying UDP socket.
func (c *ClientV1V2) Close() error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}

func (c *ClientV1V2) doPDU(ctx context.Context, pduNr uint32, vbs []VariableBinding) (PDU, error) {
	if c.transport == nil {
		return PDU{}, &ErrNoConnection{}
	}
	data, err := c.transport.SendOneRequest(ctx, func(key int32) []byte {
		return EncodeMessage(c.version, c.community, pduNr, PDU{RequestID: key, VarBinds: vbs})
	}, nil)
	if err != nil {
		return PDU{}, err
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		return PDU{}, err
	}
	if err := StatusErrorFor(msg.PDU); err != nil {
		return msg.PDU, err
	}
	return msg.PDU, nil
}

func (c *ClientV1V2) getBulk(ctx context.Context, nonRepeaters, maxRepetitions int, vbs []VariableBinding) (PDU, error) {
	if c.version != Version2c {
		return PDU{}, syntaxErrorf("getBulk requires snmpv2c")
	}
	if c.transport == nil {
		return PDU{}, &ErrNoConnection{}
	}
	data, err := c.transport.SendOneRequest(ctx, func(key int32) []byte {
		return EncodeBulkMessage(c.version, c.community, BulkPDU{
			RequestID: key, NonRepeaters: nonRepeaters, MaxRepetitions: maxRepetitions, VarBinds: vbs,
		})
	}, nil)
	if err != nil {
		return PDU{}, err
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		return PDU{}, err
	}
	if err := StatusErrorFor(msg.PDU); err != nil {
		return msg.PDU, err
	}
	return msg.PDU, nil
}

func (c *ClientV1V2) usesGetNextWalk() bool { return c.version == Version1 }
func (c *ClientV1V2) rowCap() int           { return c.maxRows }

// Get issues a GetRequest for a single OID.
func (c *ClientV1V2) Get(ctx context.Context, oid OID) (VariableBinding, error) {
	return get(ctx, c, oid)
}

// GetNext issues a GetNextRequest for a single OID.
func (c *ClientV1V2) GetNext(ctx context.Context, oid OID) (VariableBinding, error) {
	return getNext(ctx, c, oid)
}

// GetNextMulti issues a single GetNextRequest carrying every oid, filtering
// the reply to varbinds that are direct descendants of their request OID.
func (c *ClientV1V2) GetNextMulti(ctx context.Context, oids []OID) ([]VariableBinding, error) {
	return getNextMulti(ctx, c, oids)
}

// Walk walks the subtree rooted at root.
func (c *ClientV1V2) Walk(ctx context.Context, root OID, isTable bool) ([]VariableBinding, error) {
	return walk(ctx, c, root, isTable)
}

// ---- ClientV3: SNMPv3 with USM ----

// V3Option configures a ClientV3.
type V3Option func(*ClientV3)

// WithV3Port overrides the default agent port (161).
func WithV3Port(port int) V3Option { return func(c *ClientV3) { c.port = port } }

// WithAuth configures the USM authentication protocol and passphrase.
func WithAuth(proto AuthProtocol, passphrase string) V3Option {
	return func(c *ClientV3) { c.authProto = proto; c.authPass = passphrase }
}

// WithPriv configures the USM privacy protocol and passphrase.
func WithPriv(proto PrivProtocol, passphrase string) V3Option {
	return func(c *ClientV3) { c.privProto = proto; c.privPass = passphrase }
}

// WithV3MaxRows overrides the default Walk row cap (1000).
func WithV3MaxRows(n int) V3Option { return func(c *ClientV3) { c.maxRows = n } }

// WithV3Timeouts overrides the default retry schedule.
func WithV3Timeouts(ts []time.Duration) V3Option { return func(c *ClientV3) { c.timeouts = ts } }

// WithV3Logger installs a Logger.
func WithV3Logger(l Logger) V3Option { return func(c *ClientV3) { c.logger = l } }

// ClientV3 is an SNMPv3 client secured with the User-based Security Model.
type ClientV3 struct {
	host      string
	port      int
	username  string
	authProto AuthProtocol
	authPass  string
	privProto PrivProtocol
	privPass  string
	maxRows   int
	timeouts  []time.Duration
	logger    Logger

	transport *Transport
	salts     saltState

	engineID    []byte
	engineBoots int32
	engineTime  int32
	authKey     []byte
	privKey     []byte
	discovered  bool
}

// NewV3 constructs an SNMPv3 client for the given user.
func NewV3(host, username string, opts ...V3Option) (*ClientV3, error) {
	c := &ClientV3{
		host:     host,
		port:     161,
		username: username,
		maxRows:  1000,
		logger:   discardLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect opens the underlying UDP socket and performs USM engine
// discovery (a blank, reportable Get answered with a Report carrying the
// authoritative engine ID/boots/time, per RFC 3414 §4).
func (c *ClientV3) Connect(ctx context.Context) error {
	t, err := DialUDP(c.host, c.port)
	if err != nil {
		return err
	}
	t.SetLogger(c.logger)
	t.SetTimeouts(c.timeouts)
	c.transport = t
	return c.discover(ctx)
}

func (c *ClientV3) discover(ctx context.Context) error {
	data, err := c.transport.SendOneRequest(ctx, func(key int32) []byte {
		return BuildDiscoveryRequest(key, key)
	}, nil)
	if err != nil {
		return err
	}
	msg, err := ParseDiscoveryReport(data)
	if err != nil {
		return err
	}
	c.engineID = msg.Security.AuthEngineID
	c.engineBoots = msg.Security.AuthEngineBoots
	c.engineTime = msg.Security.AuthEngineTime

	if c.authProto != NoAuth {
		key, err := DeriveKey(c.authProto, c.authPass, c.engineID)
		if err != nil {
			return err
		}
		c.authKey = key
	}
	if c.privProto != NoPriv {
		key, err := DeriveKey(c.authProto, c.privPass, c.engineID)
		if err != nil {
			return err
		}
		c.privKey = key
	}
	c.discovered = true
	return nil
}

// Close releases the underlying UDP socket.
func (c *ClientV3) Close() error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}

func (c *ClientV3) flags() MsgFlags {
	switch {
	case c.privProto != NoPriv:
		return FlagAuthPriv | FlagReportable
	case c.authProto != NoAuth:
		return FlagAuthNoPriv | FlagReportable
	default:
		return FlagNoAuthNoPriv | FlagReportable
	}
}

// roundTrip sends a fully pre-encoded PDU (built by buildPDU with the
// transport-allocated key, since the key has to be stamped into both the
// v3 msgID and the inner PDU's request-id) and returns the decoded
// response PDU, translating a non-zero error-status into a *StatusError.
//
// A Report PDU is classified inside SendOneRequest's accept callback as a
// retryable outcome, not a terminal one (spec.md §4.5): a quick wrong-digest
// Report does not short-circuit the retry schedule, it only replaces the
// most recent timeout as the latest failure, surfaced as an *AuthV3Error
// only once every retry is exhausted without a real response arriving.
func (c *ClientV3) roundTrip(ctx context.Context, buildPDU func(key int32) []byte) (PDU, error) {
	if c.transport == nil {
		return PDU{}, &ErrNoConnection{}
	}
	if !c.discovered {
		return PDU{}, &ErrNoAuthParams{}
	}
	var marshalErr error
	var msgv3 MessageV3
	_, err := c.transport.SendOneRequest(ctx,
		func(key int32) []byte {
			sec := UsmSecurityParameters{
				AuthEngineID: c.engineID, AuthEngineBoots: c.engineBoots, AuthEngineTime: c.engineTime,
				UserName: c.username,
			}
			scoped := ScopedPDU{ContextEngineID: c.engineID, PDUBytes: buildPDU(key)}
			out, e := MarshalV3(key, 65507, c.flags(), 3, sec, c.authProto, c.authKey, c.privProto, c.privKey, &c.salts, scoped)
			if e != nil {
				marshalErr = e
				return nil
			}
			return out
		},
		func(respData []byte) error {
			m, err := UnmarshalV3(respData, c.authProto, c.authKey, c.privProto, c.privKey)
			if err != nil {
				return err
			}
			pduTag, err := PeekPDUTag(m.Scoped.PDUBytes)
			if err != nil {
				return &DecodeError{Context: "response pdu tag", Err: err}
			}
			if pduTag == TagReport {
				_, reportPDU, err := decodePDUFrom(NewDecoder(m.Scoped.PDUBytes))
				if err != nil {
					return &DecodeError{Context: "report pdu", Err: err}
				}
				if reason, ok := ReportReason(reportPDU); ok {
					return retryable(&AuthV3Error{Reason: reason})
				}
				return &DecodeError{Context: "report pdu", Err: syntaxErrorf("unrecognized report oid")}
			}
			msgv3 = m
			return nil
		},
	)
	if marshalErr != nil {
		return PDU{}, marshalErr
	}
	if err != nil {
		return PDU{}, err
	}

	c.engineBoots = msgv3.Security.AuthEngineBoots
	c.engineTime = msgv3.Security.AuthEngineTime

	pduTag, err := PeekPDUTag(msgv3.Scoped.PDUBytes)
	if err != nil {
		return PDU{}, &DecodeError{Context: "response pdu tag", Err: err}
	}
	if pduTag == TagGetBulkRequest {
		bulkPDU, err := decodeBulkPDUFrom(NewDecoder(msgv3.Scoped.PDUBytes))
		if err != nil {
			return PDU{}, &DecodeError{Context: "getbulk response", Err: err}
		}
		return PDU{RequestID: bulkPDU.RequestID, VarBinds: bulkPDU.VarBinds}, nil
	}

	_, respPDU, err := decodePDUFrom(NewDecoder(msgv3.Scoped.PDUBytes))
	if err != nil {
		return PDU{}, &DecodeError{Context: "response pdu", Err: err}
	}
	if err := StatusErrorFor(respPDU); err != nil {
		return respPDU, err
	}
	return respPDU, nil
}

func (c *ClientV3) doPDU(ctx context.Context, pduNr uint32, vbs []VariableBinding) (PDU, error) {
	return c.roundTrip(ctx, func(key int32) []byte {
		e := NewEncoder()
		_ = EncodePDU(e, pduNr, PDU{RequestID: key, VarBinds: vbs})
		return e.Output()
	})
}

func (c *ClientV3) getBulk(ctx context.Context, nonRepeaters, maxRepetitions int, vbs []VariableBinding) (PDU, error) {
	return c.roundTrip(ctx, func(key int32) []byte {
		e := NewEncoder()
		_ = EncodeBulkPDU(e, BulkPDU{RequestID: key, NonRepeaters: nonRepeaters, MaxRepetitions: maxRepetitions, VarBinds: vbs})
		return e.Output()
	})
}

func (c *ClientV3) usesGetNextWalk() bool { return false }
func (c *ClientV3) rowCap() int           { return c.maxRows }

// Get issues a GetRequest for a single OID.
func (c *ClientV3) Get(ctx context.Context, oid OID) (VariableBinding, error) {
	return get(ctx, c, oid)
}

// GetNext issues a GetNextRequest for a single OID.
func (c *ClientV3) GetNext(ctx context.Context, oid OID) (VariableBinding, error) {
	return getNext(ctx, c, oid)
}

// GetNextMulti issues a single GetNextRequest carrying every oid.
func (c *ClientV3) GetNextMulti(ctx context.Context, oids []OID) ([]VariableBinding, error) {
	return getNextMulti(ctx, c, oids)
}

// Walk walks the subtree rooted at root using GetBulk.
func (c *ClientV3) Walk(ctx context.Context, root OID, isTable bool) ([]VariableBinding, error) {
	return walk(ctx, c, root, isTable)
}
