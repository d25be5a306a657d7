package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"MomentumDashboard/internal/logger"
	"MomentumDashboard/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	mu       sync.Mutex
	failures int
	sent     []map[string]string
	updates  string
	offsets  []string
}

func (b *fakeBot) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if b.failures > 0 {
			b.failures--
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests"}`))
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.sent = append(b.sent, body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/botTOKEN/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.offsets = append(b.offsets, r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(b.updates))
	})
	return mux
}

func newTestNotifier(t *testing.T, bot *fakeBot) *TelegramNotifier {
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier(TelegramOptions{BotToken: "TOKEN", ChatID: "42", BaseURL: srv.URL, Logger: logger.Nop()})
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(t, bot)

	require.NoError(t, n.Send(context.Background(), "<b>hello</b>"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "42", bot.sent[0]["chat_id"])
	assert.Equal(t, "HTML", bot.sent[0]["parse_mode"])
	assert.Equal(t, "<b>hello</b>", bot.sent[0]["text"])
}

func TestSendWithRetry(t *testing.T) {
	bot := &fakeBot{failures: 2}
	n := newTestNotifier(t, bot)

	require.NoError(t, n.SendWithRetry(context.Background(), "hi", 3))
	assert.Len(t, bot.sent, 1)

	bot.failures = 5
	err := n.SendWithRetry(context.Background(), "hi", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestPoll(t *testing.T) {
	bot := &fakeBot{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /status ","chat":{"id":42}}},
		{"update_id":8,"message":{"text":"/run","chat":{"id":99}}},
		{"update_id":9}
	]}`}
	n := newTestNotifier(t, bot)

	var got []string
	next, err := n.poll(context.Background(), 3, 0, func(cmd string) string {
		got = append(got, cmd)
		return "ok " + cmd
	})
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/status"}, got)
	assert.Equal(t, []string{"3"}, bot.offsets)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "ok /status", bot.sent[0]["text"])
}

func TestFormatRunSummary(t *testing.T) {
	s := signal.Summary{
		Rows:       3,
		Up:         []string{"AAAU"},
		Down:       []string{"BAD"},
		Unresolved: map[string][]int{"NEW": {6, 12}},
	}
	msg := FormatRunSummary(s, "out/momentum.xlsx", time.Date(2026, 1, 15, 17, 30, 0, 0, time.UTC))
	for _, want := range []string{"2026-01-15 17:30", "Rows written: 3", "momentum.xlsx", "All anchors up:</b> AAAU", "All anchors down:</b> BAD", "NEW: 6mo, 12mo"} {
		assert.Contains(t, msg, want)
	}

	quiet := FormatRunSummary(signal.Summary{Rows: 1}, "x.xlsx", time.Now())
	assert.False(t, strings.Contains(quiet, "All anchors"))
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure(errors.New("AAAU: quote: <timeout>"), time.Now())
	assert.Contains(t, msg, "&lt;timeout&gt;")
}
