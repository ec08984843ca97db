package domain

// Mode is the routing outcome kind.
type Mode string

const (
	// ModeFAQHit short-circuits the pipeline with a curated answer.
	ModeFAQHit Mode = "faq-hit"
	// ModeRetrieval grounds the answer in a domain corpus.
	ModeRetrieval Mode = "domain-retrieval"
	// ModeNoRetrieval answers from model reasoning alone.
	ModeNoRetrieval Mode = "no-retrieval"
)

// Verdict is the governance judgment attached to an assembled result.
type Verdict string

const (
	// VerdictPass allows generation to use the retrieved context as-is.
	VerdictPass Verdict = "pass"
	// VerdictFallback instructs generation to disclose uncertainty
	// rather than fabricate.
	VerdictFallback Verdict = "fallback"
	// VerdictClarify asks the conversation layer to pose a clarifying
	// question. Not a failure.
	VerdictClarify Verdict = "clarify"
)

// RoutingDecision is the router's classification of one query.
type RoutingDecision struct {
	Mode Mode `json:"mode"`
	// Domain is set only for ModeRetrieval and always names a
	// registered domain.
	Domain     string  `json:"domain,omitempty"`
	Confidence float64 `json:"confidence"`
	// Tags record why the decision was made, for observability.
	Tags []string `json:"tags,omitempty"`
}

// RetrievalResult is the sole artifact handed to the external generation
// stage: the decision, the governed context, and its sources.
type RetrievalResult struct {
	Decision RoutingDecision    `json:"decision"`
	Passages []RetrievedPassage `json:"passages,omitempty"`
	Verdict  Verdict            `json:"verdict"`
	// Context is the assembled context block, empty for no-retrieval.
	Context string `json:"context,omitempty"`
	// Answer is the canned FAQ answer, set only for ModeFAQHit.
	Answer string `json:"answer,omitempty"`
	// State is the updated conversation state for the next turn.
	State ConversationState `json:"state"`
}
