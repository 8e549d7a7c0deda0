package nb

// Ledger is the durable single-slot record of an in-flight local-file
// upload. It survives process restarts so an interrupted upload can be
// offered for recovery.
type Ledger interface {
	// Save replaces the current record.
	Save(rec *PendingUpload) error

	// Load returns the current record, or nil if there is none.
	// A record that cannot be decoded returns ErrCorruptRecord.
	Load() (*PendingUpload, error)

	// Clear removes the record. Clearing an empty ledger is not an error.
	Clear() error
}
