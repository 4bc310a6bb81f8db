package simnet

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nomix-labs/mixsim/internal/simtime"
)

// Sized is implemented by anything whose wire size in bytes is known, so a
// MeteredConnection can account bandwidth without caring what T actually is.
type Sized interface {
	Len() int
}

// NodeState is the instantaneous activity of one side of an observed
// connection, sampled once per virtual millisecond (spec §4.B "observed
// connections record sender/receiver state over time").
type NodeState int

const (
	NodeIdle NodeState = iota
	NodeSending
	NodeReceiving
)

func (s NodeState) String() string {
	switch s {
	case NodeSending:
		return "sending"
	case NodeReceiving:
		return "receiving"
	default:
		return "idle"
	}
}

// NodeStateTable holds the per-millisecond activity timeline for every node
// in a run, pre-sized at construction the way the original implementation
// pre-allocates one slot per node per simulated millisecond. Set and States
// address a slot by node index and then by virtual millisecond.
type NodeStateTable struct {
	mu     sync.Mutex
	states [][]NodeState
}

// NewNodeStateTable allocates a table for numNodes nodes across a run of
// durationMs virtual milliseconds, all slots initialized to NodeIdle.
func NewNodeStateTable(numNodes int, durationMs simtime.Duration) *NodeStateTable {
	states := make([][]NodeState, numNodes)
	for i := range states {
		states[i] = make([]NodeState, durationMs+1)
	}
	return &NodeStateTable{states: states}
}

// Set records node's state at virtual time at, clamped to the table's span.
func (t *NodeStateTable) Set(node int, at simtime.Duration, state NodeState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if node < 0 || node >= len(t.states) {
		return
	}
	row := t.states[node]
	if at < 0 || int(at) >= len(row) {
		return
	}
	row[at] = state
}

// States returns a copy of node's full timeline.
func (t *NodeStateTable) States(node int) []NodeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if node < 0 || node >= len(t.states) {
		return nil
	}
	out := make([]NodeState, len(t.states[node]))
	copy(out, t.states[node])
	return out
}

// MeteredConnection wraps a RemoteSimplexConnection, accumulating per-second
// bandwidth usage and a message-size histogram and, when a NodeStateTable
// is supplied, stamping sender and receiver NodeState transitions. It is
// the Go counterpart of MeteredRemoteSimplexConnection /
// ObservedMeteredRemoteSimplexConnection: the two upstream types collapse
// into one here, with node-state observation simply optional (nil states).
type MeteredConnection[T Sized] struct {
	inner        *RemoteSimplexConnection[T]
	sched        *simtime.Scheduler
	meterStart   simtime.Duration
	senderNode   int
	receiverNode int
	states       *NodeStateTable // nil disables per-ms node-state observation

	mu          sync.Mutex
	sendMeters  []int64
	recvMeters  []int64
	msgSizes    map[int]int64

	// logSometimes bounds how often meter-slot growth is logged at debug
	// level, so a long high-fanout run doesn't flood the logger once per
	// send/recv — the accounting itself stays unthrottled.
	logSometimes rate.Sometimes
}

// NewMetered wraps conn for bandwidth accounting starting at meterStart.
// senderNode/receiverNode index into states (ignored if states is nil).
func NewMetered[T Sized](conn *RemoteSimplexConnection[T], sched *simtime.Scheduler, meterStart simtime.Duration, senderNode, receiverNode int, states *NodeStateTable) *MeteredConnection[T] {
	return &MeteredConnection[T]{
		inner:        conn,
		sched:        sched,
		meterStart:   meterStart,
		senderNode:   senderNode,
		receiverNode: receiverNode,
		states:       states,
		msgSizes:     make(map[int]int64),
	}
}

func (m *MeteredConnection[T]) Send(ctx context.Context, data T) error {
	if err := m.inner.Send(ctx, data); err != nil {
		return err
	}
	m.onSending(data)
	return nil
}

func (m *MeteredConnection[T]) Recv(ctx context.Context) (T, error) {
	data, err := m.inner.Recv(ctx)
	if err != nil {
		return data, err
	}
	m.onReceiving(data)
	return data, nil
}

func (m *MeteredConnection[T]) onSending(data T) {
	size := data.Len()
	slot := m.slot()
	m.mu.Lock()
	m.logMeterGrowth(slot)
	m.sendMeters = updateMeter(m.sendMeters, slot, size)
	m.msgSizes[size]++
	m.mu.Unlock()
	if m.states != nil {
		m.states.Set(m.senderNode, m.sched.Now(), NodeSending)
	}
}

func (m *MeteredConnection[T]) onReceiving(data T) {
	size := data.Len()
	slot := m.slot()
	m.mu.Lock()
	m.logMeterGrowth(slot)
	m.recvMeters = updateMeter(m.recvMeters, slot, size)
	m.mu.Unlock()
	if m.states != nil {
		m.states.Set(m.receiverNode, m.sched.Now(), NodeReceiving)
	}
}

func (m *MeteredConnection[T]) slot() int {
	elapsed := m.sched.Now() - m.meterStart
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Seconds())
}

func updateMeter(meters []int64, slot, size int) []int64 {
	for len(meters) <= slot {
		meters = append(meters, 0)
	}
	meters[slot] += int64(size)
	return meters
}

func (m *MeteredConnection[T]) logMeterGrowth(slot int) {
	if slot < len(m.sendMeters) && slot < len(m.recvMeters) {
		return
	}
	m.logSometimes.Do(func() {
		slog.Debug("metered connection growing meter slots", "slot", slot, "node", m.senderNode)
	})
}

// SendingBandwidths returns accumulated bytes sent per one-second slot since
// meterStart.
func (m *MeteredConnection[T]) SendingBandwidths() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.sendMeters))
	copy(out, m.sendMeters)
	return out
}

// ReceivingBandwidths returns accumulated bytes received per one-second slot
// since meterStart.
func (m *MeteredConnection[T]) ReceivingBandwidths() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.recvMeters))
	copy(out, m.recvMeters)
	return out
}

// MessageSizeCounts returns a copy of the observed size -> count histogram.
func (m *MeteredConnection[T]) MessageSizeCounts() map[int]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]int64, len(m.msgSizes))
	for k, v := range m.msgSizes {
		out[k] = v
	}
	return out
}

// Latency exposes the wrapped connection's drawn constant latency.
func (m *MeteredConnection[T]) Latency() simtime.Duration { return m.inner.Latency() }
