package xmodem

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressKind identifies a protocol milestone.
type ProgressKind int

const (
	// ProgressWaiting is reported before the handshake byte is observed or sent
	ProgressWaiting ProgressKind = iota

	// ProgressStarted is reported once the handshake is complete
	ProgressStarted

	// ProgressPacket is reported for every acknowledged packet
	ProgressPacket
)

// Progress is a protocol milestone. Packet is only meaningful for
// ProgressPacket and carries the sequence number of the packet that was
// just acknowledged.
type Progress struct {
	Kind   ProgressKind
	Packet byte
}

// Milestones in the order they are reported.
var (
	Waiting = Progress{Kind: ProgressWaiting}
	Started = Progress{Kind: ProgressStarted}
)

// PacketProgress returns the milestone for an acknowledged packet.
func PacketProgress(seq byte) Progress {
	return Progress{Kind: ProgressPacket, Packet: seq}
}

func (p Progress) String() string {
	switch p.Kind {
	case ProgressWaiting:
		return "Waiting"
	case ProgressStarted:
		return "Started"
	case ProgressPacket:
		return fmt.Sprintf("Packet(%d)", p.Packet)
	default:
		return "Unknown"
	}
}

// ProgressFunc is called synchronously by a Session at every milestone. It
// runs on the transfer's goroutine, so a slow callback slows the transfer.
type ProgressFunc func(Progress)

// NoopProgress ignores every milestone.
func NoopProgress(Progress) {}

// PrintProgress returns a ProgressFunc that writes one line per milestone.
func PrintProgress(w io.Writer) ProgressFunc {
	return func(p Progress) {
		fmt.Fprintf(w, "Progress: %s\n", p)
	}
}

// Snapshot is a point-in-time view of a transfer seen through its
// progress events.
type Snapshot struct {
	Name    string
	Packets int
	Elapsed time.Duration
}

// Bytes is the payload carried by the acknowledged packets, padding
// included.
func (s Snapshot) Bytes() int64 {
	return int64(s.Packets) * PayloadSize
}

// Rate is the average throughput in bytes per second.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes()) / s.Elapsed.Seconds()
}

// ProgressTracker counts acknowledged packets and hands a Snapshot to its
// report func at most once per interval.
type ProgressTracker struct {
	mu sync.Mutex

	name     string
	packets  int
	start    time.Time
	reported time.Time

	report   func(Snapshot)
	interval time.Duration
	now      func() time.Time
}

// NewProgressTracker creates a tracker for the transfer called name. report
// may be nil.
func NewProgressTracker(name string, interval time.Duration, report func(Snapshot)) *ProgressTracker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	pt := &ProgressTracker{
		name:     name,
		report:   report,
		interval: interval,
		now:      time.Now,
	}
	pt.start = pt.now()
	pt.reported = pt.start
	return pt
}

// Observe returns a ProgressFunc that feeds the tracker and then calls next,
// which may be nil. The clock restarts at Started so the handshake wait is
// not counted against the rate.
func (pt *ProgressTracker) Observe(next ProgressFunc) ProgressFunc {
	return func(p Progress) {
		switch p.Kind {
		case ProgressStarted:
			pt.mu.Lock()
			pt.start = pt.now()
			pt.reported = pt.start
			pt.mu.Unlock()
		case ProgressPacket:
			pt.packet()
		}
		if next != nil {
			next(p)
		}
	}
}

func (pt *ProgressTracker) packet() {
	pt.mu.Lock()
	pt.packets++
	now := pt.now()
	due := now.Sub(pt.reported) >= pt.interval
	if due {
		pt.reported = now
	}
	snap := pt.snapshot(now)
	pt.mu.Unlock()

	if due && pt.report != nil {
		pt.report(snap)
	}
}

func (pt *ProgressTracker) snapshot(now time.Time) Snapshot {
	return Snapshot{Name: pt.name, Packets: pt.packets, Elapsed: now.Sub(pt.start)}
}

// Snapshot returns the current state without reporting it.
func (pt *ProgressTracker) Snapshot() Snapshot {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.snapshot(pt.now())
}

// Finish reports the final state regardless of the interval and returns it.
func (pt *ProgressTracker) Finish() Snapshot {
	snap := pt.Snapshot()
	if pt.report != nil {
		pt.report(snap)
	}
	return snap
}
