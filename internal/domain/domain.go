package domain

// Domain is one configured knowledge area: its corpus reference, embedding
// configuration, and retrieval policy. Immutable after load.
type Domain struct {
	ID string
	// Provider names the embedding provider entry in the configuration.
	Provider string
	Model    string
	// Dimensions is the fixed vector length for this domain's corpus.
	Dimensions int
	// DocumentPrefix and QueryPrefix are prepended before embedding,
	// for models trained with asymmetric retrieval instructions.
	DocumentPrefix string
	QueryPrefix    string
	// BatchSize caps how many texts go into one provider call.
	BatchSize int
	// TopK is how many passages a retrieval returns at most.
	TopK int
	// ConfidenceFloor is the similarity score below which governance
	// downgrades the verdict to fallback. Also the trial-retrieval
	// routing threshold.
	ConfidenceFloor float64
	// TriggerTerms force routing to this domain when present in a query.
	TriggerTerms []string
}
