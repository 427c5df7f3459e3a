package core

import (
	"time"

	"strongholdcore/pkg/domain"
)

// Snapshot is the published result of one recompute cycle. Subscribers
// receive their own copy.
type Snapshot struct {
	Seq        uint64     `json:"seq"`
	Cause      string     `json:"cause"`
	Throws     []Throw    `json:"throws"`
	Locked     bool       `json:"locked"`
	UndoDepth  int        `json:"undo_depth"`
	Estimate   Estimate   `json:"estimate"`
	Advisories []Advisory `json:"advisories"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	cp := s
	cp.Throws = domain.CloneThrows(s.Throws)
	cp.Estimate = s.Estimate.Clone()
	cp.Advisories = cloneAdvisories(s.Advisories)
	return cp
}

func cloneAdvisories(in []Advisory) []Advisory {
	if in == nil {
		return nil
	}
	out := make([]Advisory, len(in))
	for i, a := range in {
		if a.Heading != nil {
			v := *a.Heading
			a.Heading = &v
		}
		if a.Offset != nil {
			v := *a.Offset
			a.Offset = &v
		}
		out[i] = a
	}
	return out
}

// offer delivers s on a latest-value channel of capacity one, replacing a
// stale undelivered snapshot instead of blocking.
func offer(ch chan Snapshot, s Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
