package gosnmp

import (
	"context"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockPacketConn is a hand-written gomock-style double for the unexported
// packetConn interface (mockgen cannot target an unexported, same-package
// interface, so this follows its generated shape directly).
type MockPacketConn struct {
	ctrl     *gomock.Controller
	recorder *MockPacketConnMockRecorder
}

type MockPacketConnMockRecorder struct{ mock *MockPacketConn }

func NewMockPacketConn(ctrl *gomock.Controller) *MockPacketConn {
	m := &MockPacketConn{ctrl: ctrl}
	m.recorder = &MockPacketConnMockRecorder{mock: m}
	return m
}

func (m *MockPacketConn) EXPECT() *MockPacketConnMockRecorder { return m.recorder }

func (m *MockPacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "WriteTo", b, addr)
	return ret[0].(int), toError(ret[1])
}

func (r *MockPacketConnMockRecorder) WriteTo(b, addr interface{}) *gomock.Call {
	return r.mock.ctrl.RecordCallWithMethodType(r.mock, "WriteTo", reflect.TypeOf((*MockPacketConn)(nil).WriteTo), b, addr)
}

func (m *MockPacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReadFrom", b)
	n, _ := ret[0].(int)
	addr, _ := ret[1].(net.Addr)
	return n, addr, toError(ret[2])
}

func (r *MockPacketConnMockRecorder) ReadFrom(b interface{}) *gomock.Call {
	return r.mock.ctrl.RecordCallWithMethodType(r.mock, "ReadFrom", reflect.TypeOf((*MockPacketConn)(nil).ReadFrom), b)
}

func (m *MockPacketConn) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	return toError(ret[0])
}

func (r *MockPacketConnMockRecorder) Close() *gomock.Call {
	return r.mock.ctrl.RecordCallWithMethodType(r.mock, "Close", reflect.TypeOf((*MockPacketConn)(nil).Close))
}

func (m *MockPacketConn) SetReadDeadline(t time.Time) error {
	ret := m.ctrl.Call(m, "SetReadDeadline", t)
	return toError(ret[0])
}

func (r *MockPacketConnMockRecorder) SetReadDeadline(t interface{}) *gomock.Call {
	return r.mock.ctrl.RecordCallWithMethodType(r.mock, "SetReadDeadline", reflect.TypeOf((*MockPacketConn)(nil).SetReadDeadline), t)
}

func toError(v interface{}) error {
	if v == nil {
		return nil
	}
	return v.(error)
}

// fakeUDPAddr is a stand-in net.Addr, avoiding a real socket bind in tests.
type fakeUDPAddr struct{}

func (fakeUDPAddr) Network() string { return "udp" }
func (fakeUDPAddr) String() string  { return "127.0.0.1:161" }

// channelConn backs ReadFrom/WriteTo with Go channels so a test goroutine
// can script an agent's replies without a real socket; it is driven through
// the MockPacketConn so gomock still records and verifies the call shape.
type channelConn struct {
	mu     sync.Mutex
	closed bool
	inbox  chan []byte
}

func newChannelConn() *channelConn {
	return &channelConn{inbox: make(chan []byte, 8)}
}

func (c *channelConn) deliver(data []byte) { c.inbox <- data }

func (c *channelConn) readFrom(b []byte) (int, net.Addr, error) {
	data, ok := <-c.inbox
	if !ok {
		return 0, nil, &net.OpError{Op: "read", Err: net.ErrClosed}
	}
	n := copy(b, data)
	return n, fakeUDPAddr{}, nil
}

func (c *channelConn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.inbox)
	return nil
}

func TestSendOneRequestMatchesResponseByKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockPacketConn(ctrl)
	cc := newChannelConn()

	mock.EXPECT().SetReadDeadline(gomock.Any()).Return(nil).AnyTimes()
	mock.EXPECT().ReadFrom(gomock.Any()).DoAndReturn(cc.readFrom).AnyTimes()
	mock.EXPECT().Close().DoAndReturn(cc.close).AnyTimes()

	var lastKey int32
	mock.EXPECT().WriteTo(gomock.Any(), gomock.Any()).DoAndReturn(func(b []byte, addr net.Addr) (int, error) {
		key, err := PeekRequestID(b)
		require.NoError(t, err)
		lastKey = key
		resp := EncodeMessage(Version2c, "public", TagGetResponse, PDU{RequestID: key, VarBinds: []VariableBinding{{Name: OID{1, 3, 6, 1}, Value: int64(1)}}})
		go cc.deliver(resp)
		return len(b), nil
	}).AnyTimes()

	tr := newTransport(mock, fakeUDPAddr{})
	defer tr.Close()

	data, err := tr.SendOneRequest(context.Background(), func(key int32) []byte {
		return EncodeMessage(Version2c, "public", TagGetRequest, PDU{RequestID: key, VarBinds: []VariableBinding{{Name: OID{1, 3, 6, 1}}}})
	}, nil)
	require.NoError(t, err)
	msg, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, lastKey, msg.PDU.RequestID)
}

func TestSendOneRequestTimesOutAfterSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockPacketConn(ctrl)
	cc := newChannelConn()

	mock.EXPECT().SetReadDeadline(gomock.Any()).Return(nil).AnyTimes()
	mock.EXPECT().ReadFrom(gomock.Any()).DoAndReturn(cc.readFrom).AnyTimes()
	mock.EXPECT().Close().DoAndReturn(cc.close).AnyTimes()
	var writes int
	var keys []int32
	mock.EXPECT().WriteTo(gomock.Any(), gomock.Any()).DoAndReturn(func(b []byte, addr net.Addr) (int, error) {
		writes++
		key, err := PeekRequestID(b)
		require.NoError(t, err)
		keys = append(keys, key)
		return len(b), nil // agent never replies
	}).AnyTimes()

	tr := newTransport(mock, fakeUDPAddr{})
	tr.SetTimeouts([]time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond})
	defer tr.Close()

	_, err := tr.SendOneRequest(context.Background(), func(key int32) []byte {
		return EncodeMessage(Version2c, "public", TagGetRequest, PDU{RequestID: key})
	}, nil)
	require.Error(t, err)
	var timeoutErr *ErrTimeout
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 3, writes, "one write per scheduled attempt")

	require.Len(t, keys, 3)
	for i := 1; i < len(keys); i++ {
		assert.Greater(t, keys[i], keys[i-1], "each retry must carry a strictly increasing request id, not resend the prior attempt's key")
	}
}

// TestSendOneRequestRetriesOnRetryableResponse confirms a decoded-but-
// unacceptable response (e.g. a USM wrong-digest Report, modeled here via a
// sentinel error from accept) does not terminate the schedule immediately:
// it replaces the latest outcome and retries, only surfacing once every
// attempt is exhausted — and every retried attempt still gets a fresh key.
func TestSendOneRequestRetriesOnRetryableResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockPacketConn(ctrl)
	cc := newChannelConn()

	mock.EXPECT().SetReadDeadline(gomock.Any()).Return(nil).AnyTimes()
	mock.EXPECT().ReadFrom(gomock.Any()).DoAndReturn(cc.readFrom).AnyTimes()
	mock.EXPECT().Close().DoAndReturn(cc.close).AnyTimes()

	var keys []int32
	mock.EXPECT().WriteTo(gomock.Any(), gomock.Any()).DoAndReturn(func(b []byte, addr net.Addr) (int, error) {
		key, err := PeekRequestID(b)
		require.NoError(t, err)
		keys = append(keys, key)
		resp := EncodeMessage(Version2c, "public", TagGetResponse, PDU{RequestID: key})
		go cc.deliver(resp)
		return len(b), nil
	}).AnyTimes()

	tr := newTransport(mock, fakeUDPAddr{})
	tr.SetTimeouts([]time.Duration{time.Second, time.Second, time.Second})
	defer tr.Close()

	sentinel := &AuthV3Error{Reason: ReasonWrongDigest}
	_, err := tr.SendOneRequest(context.Background(), func(key int32) []byte {
		return EncodeMessage(Version2c, "public", TagGetRequest, PDU{RequestID: key})
	}, func(data []byte) error {
		return retryable(sentinel)
	})
	require.Error(t, err)
	var authErr *AuthV3Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ReasonWrongDigest, authErr.Reason)

	require.Len(t, keys, 3, "a retryable response must not short-circuit the schedule")
	for i := 1; i < len(keys); i++ {
		assert.Greater(t, keys[i], keys[i-1])
	}
}

func TestSendOneRequestRespectsContextCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockPacketConn(ctrl)
	cc := newChannelConn()

	mock.EXPECT().SetReadDeadline(gomock.Any()).Return(nil).AnyTimes()
	mock.EXPECT().ReadFrom(gomock.Any()).DoAndReturn(cc.readFrom).AnyTimes()
	mock.EXPECT().Close().DoAndReturn(cc.close).AnyTimes()
	mock.EXPECT().WriteTo(gomock.Any(), gomock.Any()).DoAndReturn(func(b []byte, addr net.Addr) (int, error) {
		return len(b), nil
	}).AnyTimes()

	tr := newTransport(mock, fakeUDPAddr{})
	tr.SetTimeouts([]time.Duration{time.Second})
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.SendOneRequest(ctx, func(key int32) []byte {
		return EncodeMessage(Version2c, "public", TagGetRequest, PDU{RequestID: key})
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
