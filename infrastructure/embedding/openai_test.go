package embedding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPartitionSplitsIntoBatchSizeChunks(t *testing.T) {
	texts := make([]string, 5)
	batches := partition(texts, 2)
	assert.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[2], 1)
}

func TestNewOpenAIProviderDefaults(t *testing.T) {
	p := NewOpenAIProvider("test-key")
	assert.Equal(t, 1536, p.Dimensions())
	assert.Equal(t, "text-embedding-3-small", p.model)
}

func TestWithDimensionsOverridesDefault(t *testing.T) {
	p := NewOpenAIProvider("test-key", WithDimensions(3072), WithModel("text-embedding-3-large"))
	assert.Equal(t, 3072, p.Dimensions())
	assert.Equal(t, "text-embedding-3-large", p.model)
}

func TestWithBatchSizeOverridesDefault(t *testing.T) {
	p := NewOpenAIProvider("test-key", WithBatchSize(10))
	assert.Equal(t, 10, p.batchMax)

	texts := make([]string, 25)
	batches := partition(texts, p.batchMax)
	assert.Len(t, batches, 3)
}

func TestWithMaxParallelTasksOverridesDefault(t *testing.T) {
	p := NewOpenAIProvider("test-key")
	assert.Equal(t, int64(1), p.maxParallelTasks)

	p = NewOpenAIProvider("test-key", WithMaxParallelTasks(4))
	assert.Equal(t, int64(4), p.maxParallelTasks)
}

func TestWithInitialDelayAndBackoffFactorOverrideDefaults(t *testing.T) {
	p := NewOpenAIProvider("test-key", WithInitialDelay(5*time.Second), WithBackoffFactor(3.0))
	assert.Equal(t, 5*time.Second, p.initialDelay)
	assert.Equal(t, 3.0, p.backoffFactor)
}
