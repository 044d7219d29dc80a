package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/handlers"
	"github.com/mroshb/battle_forge/internal/security"
	"github.com/mroshb/battle_forge/pkg/logger"
	"go.uber.org/zap"
)

const (
	workerCount    = 10
	workerBacklog  = 100
	maxSendRetries = 3
	restartDelay   = 5 * time.Second
)

type Bot struct {
	api      *tgbotapi.BotAPI
	config   *config.Config
	handlers *handlers.HandlerManager
	log      *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc

	// Worker pool for parallel processing
	workerChans []chan tgbotapi.Update
	workers     sync.WaitGroup
	listener    sync.WaitGroup
	stopOnce    sync.Once
}

// InitBot authorizes against the Bot API. Updates are not read until Start.
func InitBot(cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newBot(api, cfg), nil
}

func newBot(api *tgbotapi.BotAPI, cfg *config.Config) *Bot {
	if cfg.AppEnv == "development" {
		api.Debug = true
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		api:    api,
		config: cfg,
		log:    logger.Named("telegram"),
		ctx:    ctx,
		cancel: cancel,
	}
	b.log.Infow("Authorized on account", "username", api.Self.UserName)
	return b
}

// Start routes updates to h on a pool of workers hashed by user, so one
// user's commands run in order.
func (b *Bot) Start(h *handlers.HandlerManager) {
	b.handlers = h
	b.workerChans = make([]chan tgbotapi.Update, workerCount)
	for i := range b.workerChans {
		b.workerChans[i] = make(chan tgbotapi.Update, workerBacklog)
		b.workers.Add(1)
		go b.startWorker(b.workerChans[i])
	}

	b.listener.Add(1)
	go b.startUpdateListener()
}

func (b *Bot) startUpdateListener() {
	defer b.listener.Done()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for {
		b.log.Info("Starting update listener...")
		updates := b.api.GetUpdatesChan(u)
		for update := range updates {
			b.route(update)
		}

		select {
		case <-b.ctx.Done():
			return
		case <-time.After(restartDelay):
			b.log.Warn("Update channel closed, restarting")
		}
	}
}

func (b *Bot) route(update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	// Hashed dispatch to workers to ensure per-user ordered processing
	idx := update.Message.From.ID % int64(len(b.workerChans))
	if idx < 0 {
		idx = -idx
	}
	select {
	case b.workerChans[idx] <- update:
	case <-b.ctx.Done():
	}
}

func (b *Bot) startWorker(ch chan tgbotapi.Update) {
	defer b.workers.Done()
	for update := range ch {
		b.handleUpdate(update)
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("Panic in handleUpdate", "error", r)
		}
	}()

	message := update.Message
	if message == nil || !message.IsCommand() {
		return
	}
	req := requestFromMessage(message)
	if !b.handlers.Dispatch(b.ctx, message.Command(), req, b) && message.Chat.IsPrivate() {
		b.SendMessage(req.ChatID, "Unknown command. Send /help for the list.", nil)
	}
}

func requestFromMessage(message *tgbotapi.Message) *handlers.Request {
	req := &handlers.Request{
		ChatID: message.Chat.ID,
		Args:   strings.Fields(security.SanitizeString(message.CommandArguments())),
	}
	if message.Chat.IsGroup() || message.Chat.IsSuperGroup() {
		req.ChatTitle = security.SanitizeString(message.Chat.Title)
	}
	if message.From != nil {
		req.UserID = message.From.ID
		req.Username = message.From.UserName
	}
	return req
}

// send delivers c, retrying network failures and flood waits.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable, chatID int64) (int, error) {
	var lastErr error
	for i := 0; i < maxSendRetries; i++ {
		sent, err := b.api.Send(c)
		if err == nil {
			return sent.MessageID, nil
		}
		lastErr = err
		b.log.Errorw("Failed to send message", "error", err, "chat_id", chatID, "attempt", i+1)

		wait, retry := retryDelay(err, i)
		if !retry {
			return 0, err
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}
	return 0, lastErr
}

func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if stderrors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 {
			return time.Duration(apiErr.RetryAfter) * time.Second, true
		}
		return 0, false
	}
	msg := err.Error()
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "network is unreachable") {
		return time.Duration(attempt+1) * time.Second, true
	}
	return 0, false
}

// SendMessage sends plain text and returns the message id, or 0 on failure.
func (b *Bot) SendMessage(chatID int64, text string, keyboard interface{}) int {
	msg := tgbotapi.NewMessage(chatID, text)
	switch kb := keyboard.(type) {
	case tgbotapi.ReplyKeyboardMarkup:
		msg.ReplyMarkup = kb
	case tgbotapi.InlineKeyboardMarkup:
		msg.ReplyMarkup = kb
	case tgbotapi.ReplyKeyboardRemove:
		msg.ReplyMarkup = kb
	}
	id, _ := b.send(b.ctx, msg, chatID)
	return id
}

func (b *Bot) SendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := b.send(b.ctx, doc, chatID)
	return err
}

func (b *Bot) DeleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Errorw("Failed to delete message", "chat_id", chatID, "msg_id", messageID, "error", err)
	}
}

// Stop ends the update listener and drains the workers.
func (b *Bot) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		if b.handlers == nil {
			return
		}
		b.api.StopReceivingUpdates()
		b.listener.Wait()
		for _, ch := range b.workerChans {
			close(ch)
		}
		b.workers.Wait()
		b.log.Info("Bot stopped receiving updates")
	})
}
