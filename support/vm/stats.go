package vm

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/ipfs/go-cid"
)

// StatsSource reports cumulative block store traffic, e.g. ipld.MetricsBlockStore.
type StatsSource interface {
	WriteCount() uint64
	ReadCount() uint64
	WriteSize() uint64
	ReadSize() uint64
}

// MethodKey identifies an actor method by code and number.
type MethodKey struct {
	Code   cid.Cid
	Method abi.MethodNum
}

// StatsByCall accumulates per-method store traffic.
type StatsByCall map[MethodKey]*CallStats

func (sbc StatsByCall) MergeStats(code cid.Cid, methodNum abi.MethodNum, newStats *CallStats) {
	key := MethodKey{Code: code, Method: methodNum}
	if existing, ok := sbc[key]; ok {
		existing.MergeStats(newStats)
		return
	}
	sbc[key] = newStats
}

func (sbc StatsByCall) MergeAllStats(other StatsByCall) {
	for key, stats := range other { // nolint:nomaprange
		sbc.MergeStats(key.Code, key.Method, stats)
	}
}

// CallStats is the store traffic of one or more calls to a method, including the calls it made.
type CallStats struct {
	Calls      uint64
	Reads      uint64
	Writes     uint64
	ReadBytes  uint64
	WriteBytes uint64
	SubStats   StatsByCall

	source StatsSource
	start  storeCounters
}

type storeCounters struct {
	reads, writes, readBytes, writeBytes uint64
}

func readCounters(src StatsSource) storeCounters {
	if src == nil {
		return storeCounters{}
	}
	return storeCounters{
		reads:      src.ReadCount(),
		writes:     src.WriteCount(),
		readBytes:  src.ReadSize(),
		writeBytes: src.WriteSize(),
	}
}

// NewCallStats starts measuring a call against the source's current counters.
// A nil source yields stats that stay zero.
func NewCallStats(source StatsSource) *CallStats {
	return &CallStats{source: source, start: readCounters(source)}
}

// Capture records the traffic since the stats were created as one call.
func (s *CallStats) Capture() {
	if s.source == nil {
		return
	}
	now := readCounters(s.source)
	s.Calls++
	s.Reads = now.reads - s.start.reads
	s.Writes = now.writes - s.start.writes
	s.ReadBytes = now.readBytes - s.start.readBytes
	s.WriteBytes = now.writeBytes - s.start.writeBytes
}

// MergeStats folds other, which must be for the same method, into s. Other must not be used afterwards.
func (s *CallStats) MergeStats(other *CallStats) {
	s.Calls += other.Calls
	s.Reads += other.Reads
	s.Writes += other.Writes
	s.ReadBytes += other.ReadBytes
	s.WriteBytes += other.WriteBytes

	if len(other.SubStats) == 0 {
		return
	}
	if s.SubStats == nil {
		s.SubStats = make(StatsByCall)
	}
	s.SubStats.MergeAllStats(other.SubStats)
}

func (s *CallStats) MergeSubStat(code cid.Cid, methodNum abi.MethodNum, newStats *CallStats) {
	if s.SubStats == nil {
		s.SubStats = make(StatsByCall)
	}
	s.SubStats.MergeStats(code, methodNum, newStats)
}
