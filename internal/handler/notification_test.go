package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, defaultNotificationLimit, sanitizeLimit(0), "zero falls back to the default")
	assert.Equal(t, defaultNotificationLimit, sanitizeLimit(-5), "negative falls back to the default")
	assert.Equal(t, 1, sanitizeLimit(1))
	assert.Equal(t, 20, sanitizeLimit(20))
	assert.Equal(t, maxNotificationLimit, sanitizeLimit(100))
	assert.Equal(t, maxNotificationLimit, sanitizeLimit(101), "requests above the cap are clamped")
	assert.Equal(t, maxNotificationLimit, sanitizeLimit(100000))
}
