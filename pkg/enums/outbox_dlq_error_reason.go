package enums

// OutboxDLQErrorReason records why the publisher gave up on an outbox event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonUnroutable: no topic or payload schema is registered for
	// the event type.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
	// OutboxDLQReasonNonRetryable: the broker refused the message outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonMaxAttempts: transient failures used up the retry budget.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
)

// IsValid reports whether r is one of the reasons the outbox_dlq table accepts.
func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonUnroutable, OutboxDLQReasonNonRetryable, OutboxDLQReasonMaxAttempts:
		return true
	}
	return false
}

// Replayable reports whether re-queueing the event unchanged could succeed.
// Unroutable and rejected events need a code or data fix first.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts
}
