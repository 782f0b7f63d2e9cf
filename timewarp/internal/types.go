package internal

// MailboxStats is a snapshot of mailbox operational state.
type MailboxStats struct {
	// Published counts completed slot writes (step 2 of Publish).
	Published uint64

	// LastSequence is the most recently published sequence index.
	LastSequence uint64

	// Closed reports whether the mailbox has been shut down.
	Closed bool
}
