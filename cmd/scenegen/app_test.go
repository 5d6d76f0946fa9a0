package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scenegen/internal/config"
	"scenegen/internal/debug"
)

func TestNewTokenCounterSkippedWhenNothingReports(t *testing.T) {
	assert.Nil(t, newTokenCounter("gpt-4o", nil, false))
	assert.Nil(t, newTokenCounter("gpt-4o", debug.NewLogger(false, ""), false))
}

func TestLoadPromptsDefault(t *testing.T) {
	p, err := loadPrompts(&config.Config{})
	assert.NoError(t, err)
	assert.NotNil(t, p)
}
