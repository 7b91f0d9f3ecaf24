package notification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSender_Send(t *testing.T) {
	var gotPath, gotContentType string
	var got sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL+"/", "123:secret", "-100200", time.Second)
	require.NoError(t, s.Send(context.Background(), "reader@example.com borrowed the book 'Dune'."))

	assert.Equal(t, "/bot123:secret/sendMessage", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "-100200", got.ChatID)
	assert.Equal(t, "reader@example.com borrowed the book 'Dune'.", got.Text)
}

func TestTelegramSender_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"Unauthorized", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, "status 401: Unauthorized"},
		{"NotOK", http.StatusOK, `{"ok":false,"description":"chat not found"}`, "chat not found"},
		{"Garbage", http.StatusBadGateway, `<html>bad gateway</html>`, "decoding response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewTelegramSender(srv.URL, "token", "1", time.Second).Send(context.Background(), "hi")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTelegramSender_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := NewTelegramSender(srv.URL, "very-secret-token", "1", time.Second).Send(context.Background(), "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "very-secret-token")
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender().Send(context.Background(), "hello"))
}
