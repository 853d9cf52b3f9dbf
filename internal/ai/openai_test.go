package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsChatPayload(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		fmt.Fprint(w, `{"choices": [{"message": {"content": "  hola mundo  "}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "gpt-4o-mini", "sk-test", 2*time.Second)
	out, err := client.Complete(context.Background(), Request{
		Messages:    UserMessage("di hola"),
		MaxTokens:   50,
		Temperature: 0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, "hola mundo", out, "response content is trimmed")
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.Equal(t, float64(50), gotBody["max_tokens"])

	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "di hola", msg["content"])
}

func TestCompleteRequestModelOverridesDefault(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "default-model", "k", 2*time.Second)
	_, err := client.Complete(context.Background(), Request{
		Model:    "override-model",
		Messages: UserMessage("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "override-model", gotModel)
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limit"}}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "m", "k", 2*time.Second)
	_, err := client.Complete(context.Background(), Request{Messages: UserMessage("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "m", "k", 2*time.Second)
	_, err := client.Complete(context.Background(), Request{Messages: UserMessage("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestCompleteMisconfigured(t *testing.T) {
	client := NewOpenAIClient("", "m", "", 2*time.Second)
	_, err := client.Complete(context.Background(), Request{Messages: UserMessage("x")})
	require.Error(t, err)
}
