package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenegen/internal/debug"
)

func newTestGroq(t *testing.T, status int, response string) (*GroqService, *map[string]any) {
	t.Helper()
	body := map[string]any{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	svc, err := NewGroqService("test-api-key", "", server.URL, debug.NewLogger(false, ""))
	require.NoError(t, err)
	return svc, &body
}

func TestGroqCompleteJSON(t *testing.T) {
	svc, body := newTestGroq(t, http.StatusOK, completionBody(`{"entities":["boat"]}`))

	content, err := svc.CompleteJSON(context.Background(), JSONCompletionRequest{
		SystemPrompt: "system",
		UserPrompt:   "Scene 1",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"entities":["boat"]}`, content)
	assert.Equal(t, DefaultGroqModel, (*body)["model"])

	format, ok := (*body)["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestGroqCompleteTextWithoutFormat(t *testing.T) {
	svc, body := newTestGroq(t, http.StatusOK, completionBody("plain text"))

	content, err := svc.CompleteText(context.Background(), TextCompletionRequest{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "plain text", content)
	_, hasFormat := (*body)["response_format"]
	assert.False(t, hasFormat)
}

func TestGroqErrorIsServiceError(t *testing.T) {
	svc, _ := newTestGroq(t, http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`)

	_, err := svc.CompleteJSON(context.Background(), JSONCompletionRequest{UserPrompt: "x"})
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "groq", svcErr.Provider)
}
