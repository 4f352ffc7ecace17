package findings

import (
	"sync"

	"github.com/google/uuid"
)

// Finding is a tagged record of one significant thing gone wrong during a
// campaign. Seq is assigned by the owning Ledger at Record time — it is
// the sole consumer-facing ordering guarantee the findings query offers.
type Finding struct {
	ID       string
	Seq      uint64
	Kind     Kind
	Property string
	Detail   string
	Capsule  Capsule
}

// NewFinding builds a finding with a fresh id and no sequence number yet;
// Ledger.Record assigns the sequence number on insertion.
func NewFinding(kind Kind, property, detail string, capsule Capsule) Finding {
	return Finding{
		ID:       uuid.NewString(),
		Kind:     kind,
		Property: property,
		Detail:   detail,
		Capsule:  capsule,
	}
}

// Ledger is the in-process, append-only sequence of findings a campaign
// has reported so far, queryable by a monotonic cursor. Durable
// persistence across campaigns is a C9 store concern; Ledger only needs
// to survive one process's lifetime.
type Ledger struct {
	mu       sync.Mutex
	findings []Finding
	nextSeq  uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{nextSeq: 1}
}

// Record assigns f the next sequence number and appends it, returning the
// assigned finding.
func (l *Ledger) Record(f Finding) Finding {
	l.mu.Lock()
	defer l.mu.Unlock()
	f.Seq = l.nextSeq
	l.nextSeq++
	l.findings = append(l.findings, f)
	return f
}

// Since returns every finding with Seq strictly greater than sinceSeqno,
// in sequence order, plus the cursor a caller should pass on the next
// call to resume from where this one left off.
func (l *Ledger) Since(sinceSeqno uint64) ([]Finding, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Finding
	next := sinceSeqno
	for _, f := range l.findings {
		if f.Seq > sinceSeqno {
			out = append(out, f)
			if f.Seq > next {
				next = f.Seq
			}
		}
	}
	return out, next
}

// Len returns the total number of findings recorded so far.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.findings)
}
