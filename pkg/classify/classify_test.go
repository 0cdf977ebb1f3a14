package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnconfiguredClientFallsBack(t *testing.T) {
	client := &Client{}
	assert.False(t, client.Enabled())

	result := client.Classify(context.Background(), "Weekly report", "...")
	assert.Equal(t, CategoryUnclassified, result.Category)
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.Reasoning)
}

func TestFallbackShape(t *testing.T) {
	result := Fallback("service melted")
	assert.Equal(t, CategoryUnclassified, result.Category)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, "service melted", result.Reasoning)
}
