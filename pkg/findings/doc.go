// Package findings holds the finding taxonomy, replay capsule shape, a
// sequence-numbered finding ledger, and single-threaded replay
// reproduction. A finding is a tagged record of one thing gone wrong
// during a campaign; a replay capsule is the smallest artifact that
// reproduces it deterministically on one thread, independent of whatever
// concurrent pool produced it.
package findings
