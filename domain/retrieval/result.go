package retrieval

import "github.com/kodexhq/kodex/domain/search"

// RetrievalResult is the top-level return value of Retriever.Retrieve.
type RetrievalResult struct {
	Context          AssembledContext
	TokensUsed        int
	Budget            int
	Sources           []SourceEntry
	Strategy          string
	Classification    search.Classification
	Trace             *RetrievalTrace
	Degraded          bool
	DegradationReason string
}
