package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
	"github.com/kitbuilder587/efmnb-optimizer/internal/ratelimit"
	"github.com/kitbuilder587/efmnb-optimizer/internal/service"
)

const (
	analysisFileName = "efmnb_analysis.json"
	improvedFileName = "improved_prompt.txt"
	batchFileName    = "efmnb_batch.json"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.Bool("has_document", msg.Document != nil),
	)

	if msg.Document != nil {
		h.handleDocument(ctx, msg)
		return
	}

	cmd, args := ParseCommand(msg.Text)
	switch cmd {
	case "":
		h.handleAnalyze(ctx, msg, msg.Text)
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "key":
		h.handleKey(ctx, msg, args)
	case "model":
		h.handleModel(ctx, msg, args)
	case "analyze":
		h.handleAnalyze(ctx, msg, args)
	case "improve":
		h.handleImprove(ctx, msg)
	case "json":
		h.handleJSON(ctx, msg)
	case "batch":
		h.handleBatchCommand(ctx, msg, args)
	case "history":
		h.handleHistory(ctx, msg, args)
	default:
		h.bot.Send(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	sess := h.bot.services.Sessions.Get(msg.From.ID)

	response := "Welcome! I score texts on five EFMNB axes and refine prompts with a Proposer → Critic → Verifier loop.\n\n"
	if sess.Credential(h.bot.cfg.DefaultAPIKey) == "" {
		response += "First send your Gemini API key: /key YOUR_KEY\n\n"
	}
	response += "Use /help to see all commands."

	h.bot.Send(msg.Chat.ID, response)
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	helpText := `<b>Commands:</b>

/key KEY - Save your Gemini API key (the message is deleted)
/model NAME - Set the model (without a name shows the current one)
/analyze TEXT - EFMNB analysis of a text (plain messages work too)
/improve - Refine the last analysed prompt (4 × Proposer → Critic → Verifier)
/json - Download the last analysis as JSON
/batch - Analyse one text per line after the command, or /batch demo
/history - Your recent analyses and refinements (/history clear to wipe)

<b>Axes:</b>
E - emotional intensity
F - factual specificity
M - meta-instruction density
N - narrative or reasoning flow
B - bias or one-sided framing

You can also upload a .txt file: every non-empty line is analysed separately.`

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleKey(ctx context.Context, msg *tgbotapi.Message, args string) {
	key := strings.TrimSpace(args)

	// ключ не должен оставаться в истории чата
	if err := h.bot.DeleteMessage(msg.Chat.ID, msg.MessageID); err != nil {
		h.bot.logger.Warn("failed to delete key message", zap.Error(err))
	}

	if key == "" {
		h.bot.Send(msg.Chat.ID, "Usage: /key YOUR_GEMINI_API_KEY")
		return
	}

	h.bot.services.Sessions.SetCredential(msg.From.ID, key)
	h.bot.Send(msg.Chat.ID, "API key saved. Your message with the key was deleted.")
}

func (h *Handler) handleModel(ctx context.Context, msg *tgbotapi.Message, args string) {
	model := strings.TrimSpace(args)
	if model == "" {
		current := h.bot.services.Sessions.Get(msg.From.ID).ModelOr(h.bot.cfg.DefaultModel)
		h.bot.Send(msg.Chat.ID, fmt.Sprintf("Current model: <code>%s</code>\nChange it with /model NAME", html.EscapeString(current)))
		return
	}

	h.bot.services.Sessions.SetModel(msg.From.ID, model)
	h.bot.Send(msg.Chat.ID, fmt.Sprintf("Model set to <code>%s</code>.", html.EscapeString(model)))
}

func (h *Handler) handleAnalyze(ctx context.Context, msg *tgbotapi.Message, text string) {
	// пустоту проверяем по обрезанной копии, в модель уходит текст как есть
	if err := domain.ValidatePrompt(strings.TrimSpace(text)); err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	sess := h.bot.services.Sessions.Get(msg.From.ID)
	apiKey := sess.Credential(h.bot.cfg.DefaultAPIKey)
	if err := llm.RequireCredential(apiKey); err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	if !h.allow(msg, ratelimit.CostAnalyze) {
		return
	}

	model := sess.ModelOr(h.bot.cfg.DefaultModel)

	h.bot.SendTyping(msg.Chat.ID)

	res, err := h.bot.services.Analyzer.Analyze(ctx, apiKey, model, text)
	if err != nil {
		h.bot.logger.Error("analysis failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.services.Sessions.RecordAnalysis(msg.From.ID, text, res)
	h.bot.services.History.RecordAnalysis(ctx, msg.From.ID, model, text, res)

	h.bot.Send(msg.Chat.ID, FormatAnalysis(res))
}

func (h *Handler) handleImprove(ctx context.Context, msg *tgbotapi.Message) {
	sess := h.bot.services.Sessions.Get(msg.From.ID)
	if !sess.HasAnalysis() || strings.TrimSpace(sess.OriginalPrompt) == "" {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(domain.ErrMissingOriginal))
		return
	}

	apiKey := sess.Credential(h.bot.cfg.DefaultAPIKey)
	if err := llm.RequireCredential(apiKey); err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	if !h.allow(msg, ratelimit.CostImprove) {
		return
	}

	model := sess.ModelOr(h.bot.cfg.DefaultModel)
	chatID := msg.Chat.ID

	statusID, _ := h.bot.Send(chatID, fmt.Sprintf("Refining prompt: %d iterations × %d steps, this takes a while…",
		domain.PCVIterations, len(domain.PCVSteps)))

	refiner := h.bot.services.Refiner.WithProgress(func(iteration int, step domain.Step) {
		h.bot.SendTyping(chatID)
		if step == domain.StepVerifier {
			h.bot.Edit(chatID, statusID, FormatProgress(iteration, step))
		}
	})

	trace, err := refiner.ImproveTrace(ctx, apiKey, model, sess.OriginalPrompt)
	if err != nil {
		h.bot.logger.Error("refinement failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
		)
		h.bot.Send(chatID, mapErrorToMessage(err))
		return
	}

	h.bot.services.Sessions.RecordImprovement(msg.From.ID, trace.Final)
	h.bot.services.History.RecordRefinement(ctx, msg.From.ID, model, trace.Original, trace.Final)

	h.bot.Send(chatID, FormatRefinementHeader(trace))
	if err := h.bot.SendPlain(chatID, trace.Final); err != nil {
		h.bot.logger.Error("failed to send message", zap.Error(err))
	}
	if err := h.bot.SendDocument(chatID, improvedFileName, []byte(trace.Final), ""); err != nil {
		h.bot.logger.Error("failed to send document", zap.Error(err))
	}
}

func (h *Handler) handleJSON(ctx context.Context, msg *tgbotapi.Message) {
	sess := h.bot.services.Sessions.Get(msg.From.ID)
	if !sess.HasAnalysis() {
		h.bot.Send(msg.Chat.ID, "No analysis yet. Send a text first.")
		return
	}

	data, err := json.MarshalIndent(sess.Analysis, "", "  ")
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	if err := h.bot.SendDocument(msg.Chat.ID, analysisFileName, data, "EFMNB analysis"); err != nil {
		h.bot.logger.Error("failed to send document", zap.Error(err))
	}
}

func (h *Handler) handleBatchCommand(ctx context.Context, msg *tgbotapi.Message, args string) {
	var items []domain.BatchItem
	if strings.EqualFold(strings.TrimSpace(args), "demo") {
		items = domain.DemoBatch()
	} else {
		items = domain.ParseBatchLines(args)
	}
	h.runBatch(ctx, msg, items)
}

func (h *Handler) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	if !strings.EqualFold(filepath.Ext(doc.FileName), ".txt") {
		h.bot.Send(msg.Chat.ID, "Only .txt files are supported: one text per line.")
		return
	}
	if doc.FileSize > maxUploadSize {
		h.bot.Send(msg.Chat.ID, "File is too large. Maximum 1 MB.")
		return
	}

	data, err := h.bot.DownloadFile(ctx, doc.FileID)
	if err != nil {
		h.bot.logger.Error("failed to download document", zap.Error(err))
		h.bot.Send(msg.Chat.ID, "Could not download the file. Try again.")
		return
	}
	if len(data) > maxUploadSize {
		h.bot.Send(msg.Chat.ID, "File is too large. Maximum 1 MB.")
		return
	}

	h.runBatch(ctx, msg, domain.ParseBatchLines(string(data)))
}

func (h *Handler) runBatch(ctx context.Context, msg *tgbotapi.Message, items []domain.BatchItem) {
	if len(items) == 0 {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(domain.ErrEmptyBatch))
		return
	}

	sess := h.bot.services.Sessions.Get(msg.From.ID)
	apiKey := sess.Credential(h.bot.cfg.DefaultAPIKey)
	if err := llm.RequireCredential(apiKey); err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	if !h.allow(msg, len(items)) {
		return
	}

	model := sess.ModelOr(h.bot.cfg.DefaultModel)
	h.bot.SendTyping(msg.Chat.ID)

	report, err := h.bot.services.Batch.Run(ctx, apiKey, model, items)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	for _, part := range SplitMessage(FormatBatchReport(report), maxMessageLength) {
		if _, err := h.bot.Send(msg.Chat.ID, part); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}

	if len(report.Rows) == 0 {
		return
	}
	data, err := json.MarshalIndent(report.Rows, "", "  ")
	if err != nil {
		h.bot.logger.Error("failed to encode batch", zap.Error(err))
		return
	}
	if err := h.bot.SendDocument(msg.Chat.ID, batchFileName, data, fmt.Sprintf("%d rows", len(report.Rows))); err != nil {
		h.bot.logger.Error("failed to send document", zap.Error(err))
	}
}

func (h *Handler) handleHistory(ctx context.Context, msg *tgbotapi.Message, args string) {
	if strings.EqualFold(strings.TrimSpace(args), "clear") {
		n, err := h.bot.services.History.Clear(ctx, msg.From.ID)
		if err != nil {
			h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
			return
		}
		h.bot.Send(msg.Chat.ID, fmt.Sprintf("History cleared (%d entries).", n))
		return
	}

	entries, err := h.bot.services.History.Recent(ctx, msg.From.ID, service.DefaultHistoryLimit)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}
	if len(entries) == 0 {
		h.bot.Send(msg.Chat.ID, "History is empty.")
		return
	}

	for _, part := range SplitMessage(FormatHistory(entries), maxMessageLength) {
		h.bot.Send(msg.Chat.ID, part)
	}
}

// allow списывает cost вызовов модели из минутного лимита пользователя
func (h *Handler) allow(msg *tgbotapi.Message, cost int) bool {
	if h.bot.rateLimiter.AllowN(msg.From.ID, cost) {
		return true
	}

	resetTime := h.bot.rateLimiter.ResetTime(msg.From.ID)
	h.bot.logger.Warn("rate limit exceeded",
		zap.Int64("user_id", msg.From.ID),
		zap.Int("cost", cost),
		zap.Time("reset_at", resetTime),
	)
	h.bot.RecordRateLimitHit()
	h.bot.Send(msg.Chat.ID, "Too many requests. Please wait a minute.")
	return false
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		return "API key is not set. Send /key YOUR_GEMINI_API_KEY."
	case errors.Is(err, domain.ErrEmptyPrompt):
		return "Prompt is empty."
	case errors.Is(err, domain.ErrPromptTooLong):
		return fmt.Sprintf("Prompt is too long. Maximum %d characters.", domain.MaxPromptLength)
	case errors.Is(err, domain.ErrMissingOriginal):
		return "Original prompt is missing. Re-run analysis."
	case errors.Is(err, domain.ErrEmptyBatch):
		return "No data to analyze."
	case errors.Is(err, domain.ErrHistoryDisabled):
		return "History is disabled on this bot."
	case errors.Is(err, domain.ErrAnalysis):
		return "Could not read the model's analysis: " + html.EscapeString(err.Error())
	case errors.Is(err, llm.ErrAuthFailed):
		return "The model API rejected the key. Check it and send /key again."
	case errors.Is(err, llm.ErrRateLimit):
		return "The model API is rate limiting requests. Try again later."
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to answer. Try again."
	case errors.Is(err, llm.ErrTransport):
		return "Model request failed. Try again later."
	default:
		return "Something went wrong. Try again later."
	}
}
