package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
	"github.com/kitbuilder587/efmnb-optimizer/internal/ratelimit"
	"github.com/kitbuilder587/efmnb-optimizer/internal/service"
)

const (
	frontend = "telegram"
	// лимит телеграма на одно сообщение
	maxMessageLength = 4096
	maxUploadSize    = 1 << 20
)

// Sender - часть tgbotapi.BotAPI, которой пользуется бот; в тестах подменяется
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type BotConfig struct {
	Token          string
	Debug          bool
	CallsPerMinute int
	// DefaultAPIKey используется, если пользователь не прислал /key
	DefaultAPIKey string
	DefaultModel  string
}

type Services struct {
	Analyzer *service.Analyzer
	Refiner  *service.Refiner
	Batch    *service.BatchAnalyzer
	Sessions *service.SessionStore
	History  *service.HistoryService
}

type Bot struct {
	api         Sender
	services    Services
	cfg         BotConfig
	logger      *zap.Logger
	metrics     *metrics.Metrics
	handler     *Handler
	rateLimiter *ratelimit.Limiter
	httpClient  *http.Client
	wg          sync.WaitGroup
}

func New(cfg BotConfig, svc Services, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return newBot(api, cfg, svc, logger, m), nil
}

func newBot(api Sender, cfg BotConfig, svc Services, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	bot := &Bot{
		api:      api,
		services: svc,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		rateLimiter: ratelimit.New(ratelimit.Config{
			CallsPerMinute: cfg.CallsPerMinute,
		}),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	defer b.rateLimiter.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	api, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		return fmt.Errorf("bot is not connected to telegram")
	}
	updates := api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()
	reqType := requestType(update.Message)

	if b.metrics != nil {
		b.metrics.IncRequestsInFlight()
		defer b.metrics.DecRequestsInFlight()
	}

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message != nil && update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			if b.metrics != nil {
				b.metrics.RecordRequest(frontend, reqType, "panic", time.Since(startTime))
			}
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)

	if b.metrics != nil {
		b.metrics.RecordRequest(frontend, reqType, "processed", time.Since(startTime))
	}
}

func requestType(msg *tgbotapi.Message) string {
	if msg == nil {
		return "unknown"
	}
	if msg.Document != nil {
		return "batch"
	}
	cmd, _ := ParseCommand(msg.Text)
	switch cmd {
	case "":
		return "analyze"
	case "analyze", "improve", "batch", "json", "history":
		return cmd
	default:
		return "command"
	}
}

func (b *Bot) Send(chatID int64, text string) (int, error) {
	if b.api == nil {
		return 0, nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	sent, err := b.api.Send(msg)
	return sent.MessageID, err
}

// SendPlain - без разметки, для текста промптов: его не надо экранировать
func (b *Bot) SendPlain(chatID int64, text string) error {
	if b.api == nil {
		return nil
	}
	for _, part := range SplitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) Edit(chatID int64, messageID int, text string) {
	if b.api == nil || messageID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Debug("failed to edit message", zap.Error(err))
	}
}

func (b *Bot) SendDocument(chatID int64, name string, data []byte, caption string) error {
	if b.api == nil {
		return nil
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) SendTyping(chatID int64) {
	if b.api == nil {
		return
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.api.Request(action)
}

func (b *Bot) DeleteMessage(chatID int64, messageID int) error {
	if b.api == nil {
		return nil
	}
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// DownloadFile скачивает присланный документ
func (b *Bot) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxUploadSize+1))
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordRateLimitHit(frontend)
	}
}
