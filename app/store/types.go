package store

// Outcome classifies the terminal state of one row's insert attempt.
// There is no retry transition: each row is Computed, Submitted, and then
// lands in exactly one of these states.
type Outcome string

const (
	// OutcomeInserted means the store accepted the row as new.
	OutcomeInserted Outcome = "inserted"
	// OutcomeDuplicate means a row with the same content hash already
	// existed and the store ignored the insert. This is a success.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeFailed means the store rejected the insert or the request
	// could not complete. The row is dropped, not retried.
	OutcomeFailed Outcome = "failed"
)

// Result reports a single row's insert.
type Result struct {
	Outcome Outcome
	// Hash is the row's content fingerprint, set for all outcomes once
	// fingerprinting succeeded.
	Hash string
	// Detail carries the store's response body or the transport error
	// for failed inserts.
	Detail string
}
