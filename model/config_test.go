package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGeneratorConfig(t *testing.T) {
	t.Run("Returns the documented default values", func(t *testing.T) {
		cfg := DefaultGeneratorConfig()

		assert.Equal(t, 0.4, cfg.MinSimilarityScore)
		assert.Equal(t, 50, cfg.MaxDocuments)
		assert.Equal(t, 5, cfg.MaxTypeDepth)
		assert.Equal(t, 5, cfg.MaxValidationRetries)
		assert.Equal(t, 0.05, cfg.ThresholdStep)
	})

	t.Run("Can be overridden per call", func(t *testing.T) {
		cfg := DefaultGeneratorConfig()
		cfg.MaxDocuments = 10
		cfg.MinSimilarityScore = 0.6

		assert.Equal(t, 10, cfg.MaxDocuments)
		assert.Equal(t, 0.6, cfg.MinSimilarityScore)
	})
}
