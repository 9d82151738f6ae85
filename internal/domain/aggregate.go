package domain

// SentimentCounts is an unweighted breakdown of analyzed comments.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Total    int `json:"total"`
}

// WeightSums carries per-label weighted mass.
type WeightSums struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// CategoryWeights is the weighted mass contributed by one category type.
type CategoryWeights struct {
	Positive    float64 `json:"positive"`
	Negative    float64 `json:"negative"`
	Neutral     float64 `json:"neutral"`
	TotalWeight float64 `json:"totalWeight"`
}

// WeightedBreakdown is the category-weighted view of the analyzed set.
// Percentages are rounded to two decimals and are all zero when the total
// weighted mass is zero.
type WeightedBreakdown struct {
	TotalAnalyzedComments int        `json:"totalAnalyzedComments"`
	TotalWeightedScore    float64    `json:"totalWeightedScore"`
	WeightedPercentages   WeightSums `json:"weightedPercentages"`
	CategoryBreakdown     struct {
		User     CategoryWeights `json:"user"`
		Business CategoryWeights `json:"business"`
	} `json:"categoryBreakdown"`
	RawWeights WeightSums `json:"rawWeights"`
}

// Snapshot bundles the four aggregate views published on each broadcast
// cycle. Recomputed every cycle; it has no lifecycle beyond the call that
// produced it.
type Snapshot struct {
	Overall        SentimentCounts   `json:"overall"`
	UserCounts     SentimentCounts   `json:"userCounts"`
	BusinessCounts SentimentCounts   `json:"businessCounts"`
	Weighted       WeightedBreakdown `json:"weighted"`
}

// WeightedComment is the projection the aggregation engine reads for the
// weighted breakdown: one analyzed comment with its category weight.
type WeightedComment struct {
	Sentiment    Sentiment
	Weight       float64
	CategoryType CategoryType
}
