package store

// WithType filters by the "type" column (the ExtractedUnit's closed type,
// e.g. "model", "controller").
func WithType(t string) Option {
	return WithCondition("type", t)
}

// WithTypeIn filters by the "type" column using IN.
func WithTypeIn(types []string) Option {
	return WithConditionIn("type", types)
}

// WithLanguage filters by the "language" column.
func WithLanguage(lang string) Option {
	return WithCondition("language", lang)
}

// WithPath filters by the "path" column.
func WithPath(path string) Option {
	return WithCondition("path", path)
}

// WithPathPrefix filters by a path prefix. Backends interpret this as a
// LIKE/glob match against the "path" column; it is carried as a param
// rather than a Condition because the comparison isn't equality or IN.
func WithPathPrefix(prefix string) Option {
	return WithParam("path_prefix", prefix)
}

// WithEmbedding attaches the query vector for a VectorStore similarity
// search. Backends read it via Query.Param("embedding").
func WithEmbedding(vector []float32) Option {
	return WithParam("embedding", vector)
}

// WithMinScore attaches a minimum similarity/relevance score threshold.
func WithMinScore(min float64) Option {
	return WithParam("min_score", min)
}
