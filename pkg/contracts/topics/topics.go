package topics

const (
	// Tips
	TipPublished = "tip_published"

	// DLQs
	TipPublishedDLQ = "tip_published_dlq"
)
