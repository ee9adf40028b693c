package domain

// AdmissionRecord is one filter decision kept in the audit log.
// Corresponds to admission_decisions table in ClickHouse.
type AdmissionRecord struct {
	SessionID  string // feed session that produced the event
	Mint       string // token mint address
	DevAddress string // effective developer identity
	Accepted   bool
	Step       string // failing step, empty when accepted
	Reason     string // human-readable reason
	CreatedAt  int64  // token creation time (ms), 0 when unknown
	DecidedAt  int64  // decision time (ms)
}
