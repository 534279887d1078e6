package models

// ProcessTransactionJob is the only payload carried by the work queue.
type ProcessTransactionJob struct {
	TransactionID string `json:"transaction_id"`
}

// IngestOutcome describes what the ingestion path did with a webhook.
type IngestOutcome string

const (
	IngestCreated          IngestOutcome = "created"           // first sighting, job published
	IngestReenqueued       IngestOutcome = "reenqueued"        // duplicate that was never enqueued, job published
	IngestDuplicate        IngestOutcome = "duplicate"         // duplicate already enqueued or terminal, no-op
	IngestAlreadyProcessed IngestOutcome = "already_processed" // duplicate of a PROCESSED transaction, no-op
)
