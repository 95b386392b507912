package store

import (
	"sync"
	"time"
)

// snowflakeEpoch is 2023-01-01T00:00:00Z in milliseconds.
const snowflakeEpoch = 1672531200000

// Snowflake generates time-ordered 63-bit ids: 41 bits of milliseconds
// since epoch, 10 bits of node, 12 bits of per-millisecond sequence.
// Message, Post, and File primary keys all come from here so rows sort in
// creation order without auto-increment coordination.
type Snowflake struct {
	mu   sync.Mutex
	node int64
	last int64
	seq  int64
}

// NewSnowflake returns a generator for the given node id (0-1023).
func NewSnowflake(node int64) *Snowflake {
	return &Snowflake{node: node & 0x3FF}
}

// Next returns the next id. Safe for concurrent use.
func (s *Snowflake) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < s.last {
		// Clock went backwards; hold at last until it catches up.
		now = s.last
	}
	if now == s.last {
		s.seq = (s.seq + 1) & 0xFFF
		if s.seq == 0 {
			for now <= s.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.seq = 0
	}
	s.last = now

	return (now-snowflakeEpoch)<<22 | s.node<<12 | s.seq
}
