// Package seqindex tracks, per (topic, producer) pair, the highest
// sequence number that has been contiguously delivered to the application.
// It is the consumer's Sequence Index (C1): a single map owned by the
// event-loop task and never touched from another goroutine, so unlike the
// structures in the teacher client this package has no locking of its own.
package seqindex

// ResetPolicy is the bootstrap decision made at construction: whether a
// newly-observed (topic, producer) pair starts delivering from the first
// sequence it happens to observe (ResetLatest) or is required to fetch full
// history starting at sequence 0 (ResetEarliest). It is immutable for the
// lifetime of a consumer.
type ResetPolicy uint8

const (
	// ResetLatest skips history: the first frame observed for a
	// (topic, producer) pair is treated as gap-free and delivered (DATA/
	// DIRECT) or used only to seed the index (HEAD).
	ResetLatest ResetPolicy = iota
	// ResetEarliest requires the full history: a newly-observed pair is
	// left out of the index so the first gap check fetches from sequence
	// 0.
	ResetEarliest
)

// String renders the policy the way it's spelled in configuration
// (consumer/offset/reset).
func (r ResetPolicy) String() string {
	if r == ResetEarliest {
		return "earliest"
	}
	return "latest"
}

// ParseResetPolicy parses the consumer/offset/reset configuration value.
// Any value other than "earliest" yields ResetLatest, matching the
// source's default-to-latest behavior.
func ParseResetPolicy(s string) ResetPolicy {
	if s == "earliest" {
		return ResetEarliest
	}
	return ResetLatest
}
