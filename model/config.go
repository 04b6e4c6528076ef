package model

// GeneratorConfig holds the tunable knobs for the dynamic operation
// generator. All knobs may be overridden per call.
type GeneratorConfig struct {
	MinSimilarityScore  float64 `json:"min_similarity_score"`
	MaxDocuments        int     `json:"max_documents"`
	MaxTypeDepth        int     `json:"max_type_depth"`
	MaxValidationRetries int    `json:"max_validation_retries"`
	ThresholdStep       float64 `json:"threshold_step"`
}

// DefaultGeneratorConfig returns the default tuning for the generator.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MinSimilarityScore:   0.4,
		MaxDocuments:         50,
		MaxTypeDepth:         5,
		MaxValidationRetries: 5,
		ThresholdStep:        0.05,
	}
}

// FilterOp is a VectorStore structured-filter operator.
type FilterOp string

const (
	FilterEq     FilterOp = "eq"
	FilterNeq    FilterOp = "neq"
	FilterIn     FilterOp = "in"
	FilterExists FilterOp = "exists"
)

// Filter is a single structured filter clause over either a promoted
// top-level column or a nested metadata key.
type Filter struct {
	Field string      `json:"field"`
	Op    FilterOp    `json:"op"`
	Value interface{} `json:"value,omitempty"`
}

// VectorSearchOptions configures a VectorStore.Search call.
type VectorSearchOptions struct {
	Limit           int
	MetadataFilters []Filter
	ColumnFilters   []Filter
}
