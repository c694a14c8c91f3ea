package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_GetUpdates(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"from":{"id":42,"username":"ann","first_name":"Ann"},"chat":{"id":42,"type":"private"},"text":"/start"}},
			{"update_id":11}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN", time.Second, zap.NewNop())
	updates, err := c.GetUpdates(context.Background(), 10, 25*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "ann", updates[0].Message.From.Username)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Nil(t, updates[1].Message)

	assert.Equal(t, float64(10), body["offset"])
	assert.Equal(t, float64(25), body["timeout"])
}

func TestClient_SendReply(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		// decoded fresh per request
		var req sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = req
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN", time.Second, zap.NewNop())
	require.NoError(t, c.SendReply(context.Background(), 42, "hello", [][]string{{"a", "b"}, {"c"}}))
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "hello", got.Text)
	require.NotNil(t, got.ReplyMarkup)
	assert.True(t, got.ReplyMarkup.ResizeKeyboard)
	require.Len(t, got.ReplyMarkup.Keyboard, 2)
	assert.Equal(t, "b", got.ReplyMarkup.Keyboard[0][1].Text)

	require.NoError(t, c.SendMessage(context.Background(), 42, "plain"))
	assert.Equal(t, "plain", got.Text)
	assert.Nil(t, got.ReplyMarkup)
}

func TestClient_SendDocument(t *testing.T) {
	var (
		chatID, caption, markup, filename string
		content                           []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendDocument", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		chatID = r.FormValue("chat_id")
		caption = r.FormValue("caption")
		markup = r.FormValue("reply_markup")
		f, hdr, err := r.FormFile("document")
		require.NoError(t, err)
		defer f.Close()
		filename = hdr.Filename
		content, _ = io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":6}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN", time.Second, zap.NewNop())
	err := c.SendDocument(context.Background(), 42, "ACME_employees.xlsx", []byte("xlsx-bytes"), "roster", [][]string{{"menu"}})
	require.NoError(t, err)
	assert.Equal(t, "42", chatID)
	assert.Equal(t, "roster", caption)
	assert.Equal(t, "ACME_employees.xlsx", filename)
	assert.Equal(t, []byte("xlsx-bytes"), content)
	assert.JSONEq(t, `{"keyboard":[[{"text":"menu"}]],"resize_keyboard":true}`, markup)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN", time.Second, zap.NewNop())
	err := c.SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
