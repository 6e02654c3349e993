package bus

import "sync/atomic"

// IDManager issues strictly increasing order and request ids, seeded from the
// handshake's initial next-order-id. Counters live in memory only; a
// reconnect continues the sequence so ids issued before an outage are never
// reissued.
type IDManager struct {
	order   atomic.Int64
	request atomic.Int64
}

func NewIDManager(seed int64) *IDManager {
	m := &IDManager{}
	m.order.Store(seed)
	m.request.Store(seed)
	return m
}

func (m *IDManager) NextOrderID() int64 {
	return m.order.Add(1) - 1
}

func (m *IDManager) NextRequestID() int64 {
	return m.request.Add(1) - 1
}
