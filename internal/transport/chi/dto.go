package chi

import "github.com/unswcbr/dory/internal/domain"

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query      string           `json:"query"`
	Turn       int              `json:"turn,omitempty"`
	DomainHint string           `json:"domain_hint,omitempty"`
	State      *ConversationDTO `json:"state,omitempty"`
}

// ConversationDTO carries the caller-held session state across turns.
type ConversationDTO struct {
	PinnedDomain       string `json:"pinned_domain,omitempty"`
	ClarifyOnAmbiguity bool   `json:"clarify_on_ambiguity,omitempty"`
}

// PassageDTO is one retrieved passage in a QueryResponse.
type PassageDTO struct {
	SourceID string  `json:"source_id"`
	Seq      int     `json:"seq"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// QueryResponse is the body returned by POST /v1/query.
type QueryResponse struct {
	Mode       string          `json:"mode"`
	Domain     string          `json:"domain,omitempty"`
	Confidence float64         `json:"confidence"`
	Tags       []string        `json:"tags,omitempty"`
	Verdict    string          `json:"verdict"`
	Passages   []PassageDTO    `json:"passages,omitempty"`
	Context    string          `json:"context,omitempty"`
	Answer     string          `json:"answer,omitempty"`
	State      ConversationDTO `json:"state"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func resultToResponse(res domain.RetrievalResult) QueryResponse {
	resp := QueryResponse{
		Mode:       string(res.Decision.Mode),
		Domain:     res.Decision.Domain,
		Confidence: res.Decision.Confidence,
		Tags:       res.Decision.Tags,
		Verdict:    string(res.Verdict),
		Context:    res.Context,
		Answer:     res.Answer,
		State: ConversationDTO{
			PinnedDomain:       res.State.PinnedDomain,
			ClarifyOnAmbiguity: res.State.ClarifyOnAmbiguity,
		},
	}
	if len(res.Passages) > 0 {
		resp.Passages = make([]PassageDTO, len(res.Passages))
		for i, p := range res.Passages {
			resp.Passages[i] = PassageDTO{
				SourceID: p.SourceID,
				Seq:      p.Seq,
				Text:     p.Text,
				Score:    p.Score,
				Rank:     p.Rank,
			}
		}
	}
	return resp
}
