package domain

// FAQEntry is one curated question/answer pair. Loaded at startup,
// immutable for the table's lifetime; lookups never mutate it.
type FAQEntry struct {
	// Question is the canonical phrasing.
	Question string `yaml:"question" json:"question"`
	// Paraphrases are accepted alternative phrasings.
	Paraphrases []string `yaml:"paraphrases,omitempty" json:"paraphrases,omitempty"`
	Answer      string   `yaml:"answer" json:"answer"`
	// Domain optionally attributes the entry to a knowledge domain.
	Domain string `yaml:"domain,omitempty" json:"domain,omitempty"`
}
