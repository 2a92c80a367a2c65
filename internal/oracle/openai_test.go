package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"  Reasoning.\n\nThe likelihood of this event happening is 40%  "}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("sk-test", srv.URL+"/", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, c.Model())

	text, err := c.Complete(context.Background(), Request{System: "persona", Prompt: "question", MaxTokens: 250})
	require.NoError(t, err)
	assert.Equal(t, "Reasoning.\n\nThe likelihood of this event happening is 40%", text)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.Equal(t, 250, got.MaxTokens)
	assert.Equal(t, []chatMessage{{Role: "system", Content: "persona"}, {Role: "user", Content: "question"}}, got.Messages)
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
		}))
		defer srv.Close()
		c, err := NewOpenAIClient("bad", srv.URL, "m", 0)
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), Request{Prompt: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Incorrect API key")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()
		c, err := NewOpenAIClient("k", srv.URL, "m", 0)
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), Request{Prompt: "q"})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("blank content is an answer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"  \n "}}]}`))
		}))
		defer srv.Close()
		c, err := NewOpenAIClient("k", srv.URL, "m", 0)
		require.NoError(t, err)
		text, err := c.Complete(context.Background(), Request{Prompt: "q"})
		require.NoError(t, err)
		assert.Equal(t, "", text)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := NewOpenAIClient("", "", "", 0)
		assert.Error(t, err)
	})
}

func TestFunc(t *testing.T) {
	o := Func(func(ctx context.Context, req Request) (string, error) { return req.Prompt + "!", nil })
	out, err := o.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
}
