package domain

// Query is one inbound user question.
type Query struct {
	Text string `json:"text"`
	// Turn is the conversation-turn index, informational only.
	Turn int `json:"turn,omitempty"`
	// DomainHint pins routing when the conversation layer already
	// resolved ambiguity (e.g. the user confirmed "the summit").
	DomainHint string `json:"domain_hint,omitempty"`
}

// ConversationState is the session-scoped routing state, passed in and
// returned updated. The core never mutates the caller's copy.
type ConversationState struct {
	// PinnedDomain keeps routing on a domain for the rest of the session
	// once intent was resolved, until a general-knowledge marker un-pins it.
	PinnedDomain string `json:"pinned_domain,omitempty"`
	// ClarifyOnAmbiguity asks for a clarify outcome instead of
	// no-retrieval when no domain clears its confidence threshold.
	ClarifyOnAmbiguity bool `json:"clarify_on_ambiguity,omitempty"`
}
