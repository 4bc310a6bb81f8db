package simstats

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/nomix-labs/mixsim/internal/simnet"
)

// ConnectionStats aggregates per-connection bandwidth and message-size
// metering across every metered link in a run, the persisted counterpart
// of a live simnet.MeteredConnection (spec §4.B observed connections),
// mirroring the per-run bandwidth/size bookkeeping queuesim.py folds into
// its result tables once every connection has been torn down.
type ConnectionStats struct {
	mu             sync.Mutex
	totalSendBytes int64
	totalRecvBytes int64
	msgSizes       map[int]int64
	connections    int
}

// NewConnectionStats returns an empty aggregate ready to fold metered
// connections into via RecordConnection.
func NewConnectionStats() *ConnectionStats {
	return &ConnectionStats{msgSizes: make(map[int]int64)}
}

// RecordConnection folds one metered connection's lifetime send/receive
// bandwidth meters and message-size histogram into the aggregate.
func (c *ConnectionStats) RecordConnection(sendBandwidths, recvBandwidths []int64, msgSizes map[int]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections++
	for _, v := range sendBandwidths {
		c.totalSendBytes += v
	}
	for _, v := range recvBandwidths {
		c.totalRecvBytes += v
	}
	for size, count := range msgSizes {
		c.msgSizes[size] += count
	}
}

// TotalBytes returns the aggregate bytes sent and received across every
// connection recorded so far.
func (c *ConnectionStats) TotalBytes() (sent, received int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSendBytes, c.totalRecvBytes
}

// Connections returns how many metered connections have been folded in.
func (c *ConnectionStats) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connections
}

// MessageSizeCounts returns a copy of the merged size -> count histogram.
func (c *ConnectionStats) MessageSizeCounts() map[int]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]int64, len(c.msgSizes))
	for k, v := range c.msgSizes {
		out[k] = v
	}
	return out
}

// WriteCSV persists the aggregate as a two-column size,count histogram
// followed by total_send_bytes and total_recv_bytes rows, one file per
// session the way paramset and
// series CSVs are written alongside it.
func (c *ConnectionStats) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write connection stats csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"message_size", "count"}); err != nil {
		return err
	}
	sizes := c.MessageSizeCounts()
	ordered := make([]int, 0, len(sizes))
	for size := range sizes {
		ordered = append(ordered, size)
	}
	sort.Ints(ordered)
	for _, size := range ordered {
		if err := w.Write([]string{strconv.Itoa(size), strconv.FormatInt(sizes[size], 10)}); err != nil {
			return err
		}
	}

	sent, recv := c.TotalBytes()
	if err := w.Write([]string{"total_send_bytes", strconv.FormatInt(sent, 10)}); err != nil {
		return err
	}
	return w.Write([]string{"total_recv_bytes", strconv.FormatInt(recv, 10)})
}

// NodeActivity is one node's time-in-state breakdown over a run, in
// virtual milliseconds sampled from a simnet.NodeStateTable.
type NodeActivity struct {
	IdleMillis      int64
	SendingMillis   int64
	ReceivingMillis int64
}

// SummarizeNodeStates reduces a NodeStateTable's per-millisecond timeline
// into one NodeActivity per node.
func SummarizeNodeStates(table *simnet.NodeStateTable, numNodes int) []NodeActivity {
	out := make([]NodeActivity, numNodes)
	for i := 0; i < numNodes; i++ {
		for _, s := range table.States(i) {
			switch s {
			case simnet.NodeSending:
				out[i].SendingMillis++
			case simnet.NodeReceiving:
				out[i].ReceivingMillis++
			default:
				out[i].IdleMillis++
			}
		}
	}
	return out
}
