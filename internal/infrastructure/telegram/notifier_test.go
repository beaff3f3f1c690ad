package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Poligraph/internal/config"
)

func TestPublishDigestPostsForm(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("chat_id"))
		assert.Empty(t, r.PostForm.Get("parse_mode"))
		mu.Lock()
		texts = append(texts, r.PostForm.Get("text"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "token", ChatID: "42"}).WithAPIBase(srv.URL)
	require.NoError(t, n.PublishDigest(context.Background(), "- [À VÉRIFIER] Affaire X"))

	require.Len(t, texts, 1)
	assert.Equal(t, "- [À VÉRIFIER] Affaire X", texts[0])
}

func TestPublishDigestReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "token", ChatID: "42"}).WithAPIBase(srv.URL)
	err := n.PublishDigest(context.Background(), "digest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPublishDigestMisconfigured(t *testing.T) {
	n := NewNotifier(config.TelegramConfig{})
	assert.Error(t, n.PublishDigest(context.Background(), "digest"))
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := strings.Repeat("ligne\n", 5)
	parts := splitMessage(text, 10)
	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 10)
	}
	assert.Equal(t, "ligne\n", parts[0])

	parts = splitMessage(strings.Repeat("é", 25), 10)
	assert.Len(t, parts, 3)
}
