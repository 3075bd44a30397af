package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/conversation"
	"github.com/igoryan-dao/thinking-tools/internal/format"
	"github.com/igoryan-dao/thinking-tools/internal/voice"
)

// Callback data prefixes
const (
	// CallbackCommand carries a chat command, e.g. "cmd:/2"
	CallbackCommand = "cmd:"

	// Telegram rejects longer messages
	maxMessageRunes = 4096
)

const welcomeText = `👋 씽킹툴 봇입니다.

평소에는 조용히 있다가 /think 또는 "씽킹툴" 이라고 부르면 문제 해결을 도와드립니다.
예: /think 팀 회의가 너무 길어요`

// api is the subset of the Telegram client the bot uses
type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
}

// Bot wraps Telegram bot with message handling
type Bot struct {
	bot            *bot.Bot
	api            api
	allowedUserIDs map[int64]bool
	hub            *conversation.Hub
	logger         *zap.Logger

	// Voice notes are ignored while transcriber is nil
	transcriber voice.Transcriber
	fileURL     func(filePath string) string
	httpClient  *http.Client
}

// New creates a new Telegram bot
func New(token string, allowedIDs []int64, hub *conversation.Hub, logger *zap.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}

	b := newBot(nil, allowedIDs, hub, logger)

	tgBot, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.bot = tgBot
	b.api = tgBot
	b.fileURL = func(filePath string) string {
		return fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", token, filePath)
	}
	return b, nil
}

func newBot(client api, allowedIDs []int64, hub *conversation.Hub, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[int64]bool)
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	return &Bot{
		api:            client,
		allowedUserIDs: allowed,
		hub:            hub,
		logger:         logger.Named("telegram"),
		httpClient:     http.DefaultClient,
	}
}

// SetTranscriber enables voice notes
func (b *Bot) SetTranscriber(t voice.Transcriber) {
	b.transcriber = t
}

// Start begins long polling and blocks until ctx is done
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("starting Telegram bot", zap.Int("allowed_users", len(b.allowedUserIDs)))
	b.bot.Start(ctx)
}

// ConversationKey maps a chat to its hub key
func ConversationKey(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) allowed(userID int64) bool {
	return len(b.allowedUserIDs) == 0 || b.allowedUserIDs[userID]
}

// handleUpdate processes all incoming updates
func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// handleCallback turns a button click into the command it stands for
func (b *Bot) handleCallback(ctx context.Context, callback *models.CallbackQuery) {
	userID := callback.From.ID
	if !b.allowed(userID) {
		b.logger.Warn("unauthorized callback", zap.Int64("user_id", userID))
		return
	}

	// Answer callback to remove loading state
	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		b.logger.Debug("failed to answer callback", zap.Error(err))
	}

	msg := callback.Message.Message
	if msg == nil || !strings.HasPrefix(callback.Data, CallbackCommand) {
		return
	}

	command := strings.TrimPrefix(callback.Data, CallbackCommand)
	b.dispatch(ctx, msg.Chat.ID, command)
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *models.Message) {
	if message.From == nil {
		return
	}
	userID := message.From.ID
	if !b.allowed(userID) {
		b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", userID))
		return
	}

	if message.Voice != nil {
		b.handleVoice(ctx, message)
		return
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}
	if strings.HasPrefix(text, "/start") {
		b.sendWelcome(ctx, message.Chat.ID)
		return
	}

	b.dispatch(ctx, message.Chat.ID, text)
}

// handleVoice transcribes a voice note and treats the result as typed text
func (b *Bot) handleVoice(ctx context.Context, message *models.Message) {
	chatID := message.Chat.ID
	if b.transcriber == nil {
		b.logger.Debug("voice note ignored, transcription disabled", zap.Int64("chat_id", chatID))
		return
	}

	text, err := b.transcribe(ctx, message.Voice)
	if err != nil {
		b.logger.Warn("voice transcription failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendText(ctx, chatID, "🎙 음성을 인식하지 못했습니다. 텍스트로 다시 보내주세요.")
		return
	}

	b.logger.Debug("voice note transcribed", zap.Int64("chat_id", chatID), zap.Int("runes", len([]rune(text))))
	b.dispatch(ctx, chatID, text)
}

func (b *Bot) transcribe(ctx context.Context, v *models.Voice) (string, error) {
	if v.FileSize > voice.MaxAudioBytes {
		return "", fmt.Errorf("voice note too large: %d bytes", v.FileSize)
	}

	file, err := b.api.GetFile(ctx, &bot.GetFileParams{FileID: v.FileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fileURL(file.FilePath), nil)
	if err != nil {
		return "", err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download voice note: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download voice note: status %d", resp.StatusCode)
	}

	return b.transcriber.Transcribe(ctx, io.LimitReader(resp.Body, voice.MaxAudioBytes), v.FileID+".ogg")
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) dispatch(ctx context.Context, chatID int64, text string) {
	reply := b.hub.Handle(ctx, ConversationKey(chatID), text)
	if reply.Silent {
		return
	}
	if err := b.SendReply(ctx, chatID, reply); err != nil {
		b.logger.Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// SendReply renders a conversation reply with its options as buttons
func (b *Bot) SendReply(ctx context.Context, chatID int64, reply conversation.Reply) error {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      format.ToTelegramHTML(format.Truncate(reply.Text, maxMessageRunes-256)),
		ParseMode: models.ParseModeHTML,
	}
	if kb := keyboard(reply.Options); kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := b.api.SendMessage(ctx, params)
	return err
}

// keyboard lays out one button per method and pairs the short commands
func keyboard(options []conversation.Option) *models.InlineKeyboardMarkup {
	if len(options) == 0 {
		return nil
	}

	var rows [][]models.InlineKeyboardButton
	var tail []models.InlineKeyboardButton
	for _, opt := range options {
		btn := models.InlineKeyboardButton{
			Text:         opt.Label,
			CallbackData: CallbackCommand + opt.Command,
		}
		if strings.HasPrefix(opt.Command, "/") && len(opt.Command) > 1 && opt.Command[1] >= '0' && opt.Command[1] <= '9' {
			rows = append(rows, []models.InlineKeyboardButton{btn})
			continue
		}
		tail = append(tail, btn)
	}
	if len(tail) > 0 {
		rows = append(rows, tail)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// sendWelcome sends the intro with a help button
func (b *Bot) sendWelcome(ctx context.Context, chatID int64) {
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   welcomeText,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "📖 도움말", CallbackData: CallbackCommand + "/help"},
				},
			},
		},
	})
	if err != nil {
		b.logger.Error("failed to send welcome", zap.Error(err))
	}
}
