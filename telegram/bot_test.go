package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/battle_forge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	method    string
	chatID    string
	messageID string
	caption   string
}

type fakeAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	sendFail bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	if method == "getMe" {
		fmt.Fprint(w, `{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"Forge","username":"bf_bot"}}`)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{
		method:    method,
		chatID:    r.FormValue("chat_id"),
		messageID: r.FormValue("message_id"),
		caption:   r.FormValue("caption"),
	})
	fail := f.sendFail
	f.mu.Unlock()

	switch {
	case method == "deleteMessage":
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	case fail:
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	default:
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":42,"date":0,"chat":{"id":-100,"type":"group"}}}`)
	}
}

func (f *fakeAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.method
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()
	fake := &fakeAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithClient("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	b := newBot(api, &config.Config{AppEnv: "test"})
	t.Cleanup(b.Stop)
	return b, fake
}

func TestSink_ReplaceDeletesPrevious(t *testing.T) {
	b, fake := newTestBot(t)

	id, err := b.Sink().Replace(context.Background(), 5, -100, "Round 2")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, []string{"deleteMessage", "sendMessage"}, fake.methods())
	assert.Equal(t, "5", fake.calls[0].messageID)
	assert.Equal(t, "-100", fake.calls[1].chatID)
}

func TestSink_FirstMessageHasNothingToDelete(t *testing.T) {
	b, fake := newTestBot(t)

	_, err := b.Sink().Replace(context.Background(), 0, -100, "Kick-off")
	require.NoError(t, err)
	assert.Equal(t, []string{"sendMessage"}, fake.methods())
}

func TestSendMessage_APIErrorIsNotRetried(t *testing.T) {
	b, fake := newTestBot(t)
	fake.sendFail = true

	assert.Zero(t, b.SendMessage(-100, "hello", nil))
	assert.Equal(t, []string{"sendMessage"}, fake.methods())

	_, err := b.Sink().Send(context.Background(), -100, "hello")
	assert.Error(t, err)
}

func TestSendDocument(t *testing.T) {
	b, fake := newTestBot(t)

	require.NoError(t, b.SendDocument(-100, "battle_forge.xlsx", []byte("xlsx"), "Export"))
	require.Equal(t, []string{"sendDocument"}, fake.methods())
	assert.Equal(t, "Export", fake.calls[0].caption)
}

func TestRetryDelay(t *testing.T) {
	wait, retry := retryDelay(&tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 3}}, 0)
	assert.True(t, retry)
	assert.Equal(t, "3s", wait.String())

	_, retry = retryDelay(&tgbotapi.Error{Code: 400, Message: "Bad Request"}, 0)
	assert.False(t, retry)

	wait, retry = retryDelay(fmt.Errorf("read tcp: connection reset by peer"), 1)
	assert.True(t, retry)
	assert.Equal(t, "2s", wait.String())
}

func commandMessage(chat *tgbotapi.Chat, text string, commandLen int) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		Chat:     chat,
		From:     &tgbotapi.User{ID: 10, UserName: "alice"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: commandLen}},
	}
}

func TestRequestFromMessage(t *testing.T) {
	group := &tgbotapi.Chat{ID: -100, Type: "supergroup", Title: "Arena"}
	msg := commandMessage(group, "/gamble@bf_bot 1 @alice_team 3", len("/gamble@bf_bot"))

	assert.Equal(t, "gamble", msg.Command())
	req := requestFromMessage(msg)
	assert.Equal(t, int64(-100), req.ChatID)
	assert.Equal(t, "Arena", req.ChatTitle)
	assert.Equal(t, int64(10), req.UserID)
	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, []string{"1", "@alice_team", "3"}, req.Args)

	private := &tgbotapi.Chat{ID: 10, Type: "private", Title: "ignored"}
	req = requestFromMessage(commandMessage(private, "/mystats", len("/mystats")))
	assert.Empty(t, req.ChatTitle)
	assert.Empty(t, req.Args)
}
