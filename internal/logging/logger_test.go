package logging

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *CompletionLogger {
	t.Helper()
	logger, err := NewCompletionLogger(filepath.Join(t.TempDir(), "db", "completions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func TestRecordAndReadAttempts(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	require.NoError(t, logger.RecordAttempt(ctx, Attempt{
		SessionID:  "s1",
		SceneNum:   1,
		Attempt:    1,
		Model:      "gpt-4",
		UserPrompt: "Scene 1",
		Response:   "not json",
		Outcome:    OutcomeParseError,
		Error:      "invalid character",
		Duration:   15 * time.Millisecond,
	}))
	require.NoError(t, logger.RecordAttempt(ctx, Attempt{
		SessionID:  "s1",
		SceneNum:   1,
		Attempt:    2,
		Model:      "gpt-4",
		UserPrompt: "Scene 1",
		Response:   `{"scene_name":"x"}`,
		Outcome:    OutcomeSuccess,
	}))

	logs, err := logger.GetRecentCompletions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, 2, logs[0].Attempt)
	assert.Equal(t, OutcomeSuccess, logs[0].Outcome)
	assert.Equal(t, 1, logs[1].Attempt)
	assert.Equal(t, OutcomeParseError, logs[1].Outcome)

	var metadata CompletionMetadata
	require.NoError(t, json.Unmarshal([]byte(logs[1].Metadata), &metadata))
	assert.Equal(t, "gpt-4", metadata.Model)
	require.NotNil(t, metadata.Error)
	assert.Equal(t, "invalid character", *metadata.Error)
	assert.Nil(t, logs[0].Rating)
}

func TestGetRecentCompletionsLimit(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, logger.RecordAttempt(ctx, Attempt{SessionID: "s", SceneNum: 1, Attempt: i, Outcome: OutcomeSuccess}))
	}

	logs, err := logger.GetRecentCompletions(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
	assert.Equal(t, 5, logs[0].Attempt)
}

func TestRateCompletion(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	require.NoError(t, logger.RecordAttempt(ctx, Attempt{SessionID: "s", SceneNum: 1, Attempt: 1, Outcome: OutcomeSuccess}))
	logs, err := logger.GetRecentCompletions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	require.NoError(t, logger.RateCompletion(ctx, logs[0].ID, 4, "good background"))

	logs, err = logger.GetRecentCompletions(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, logs[0].Rating)
	assert.Equal(t, 4, *logs[0].Rating)
	require.NotNil(t, logs[0].Notes)
	assert.Equal(t, "good background", *logs[0].Notes)
}

func TestRateCompletionValidation(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	assert.Error(t, logger.RateCompletion(ctx, 1, 0, ""))
	assert.Error(t, logger.RateCompletion(ctx, 1, 6, ""))
	assert.Error(t, logger.RateCompletion(ctx, 999, 3, ""))
}
