package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/conversation"
	"github.com/igoryan-dao/thinking-tools/internal/format"
)

const (
	// CustomIDPrefix marks buttons that carry a chat command
	CustomIDPrefix = "thinking:"

	maxMessageRunes  = 2000
	maxButtonLabel   = 80
	buttonsPerRow    = 5
	maxComponentRows = 5
)

// api is the subset of the Discord session the bot uses
type api interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Bot wraps Discord bot with message handling
type Bot struct {
	session *discordgo.Session
	api     api
	guildID string // Optional: restrict to specific guild
	hub     *conversation.Hub
	logger  *zap.Logger
}

// New creates a new Discord bot
func New(token string, guildID string, hub *conversation.Hub, logger *zap.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is empty")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	b := newBot(session, guildID, hub, logger)
	b.session = session

	// Register handlers
	session.AddHandler(b.handleMessage)
	session.AddHandler(b.handleInteraction)
	session.AddHandler(b.handleReady)

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	return b, nil
}

func newBot(client api, guildID string, hub *conversation.Hub, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:     client,
		guildID: guildID,
		hub:     hub,
		logger:  logger.Named("discord"),
	}
}

// Start opens connection to Discord
func (b *Bot) Start() error {
	b.logger.Info("starting Discord bot")
	return b.session.Open()
}

// Stop closes connection
func (b *Bot) Stop() error {
	b.logger.Info("stopping Discord bot")
	return b.session.Close()
}

// ConversationKey maps a channel to its hub key
func ConversationKey(channelID string) string {
	return "dc:" + channelID
}

// handleReady logs when bot is connected
func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Discord bot connected", zap.String("user", r.User.Username))
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore bot's own messages
	if s.State != nil && s.State.User != nil && m.Author != nil && m.Author.ID == s.State.User.ID {
		return
	}
	b.onMessage(context.Background(), m)
}

func (b *Bot) onMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	// Ignore messages from other guilds if restricted
	if b.guildID != "" && m.GuildID != b.guildID {
		return
	}
	b.dispatch(ctx, m.ChannelID, m.Content)
}

// handleInteraction turns a button click into the command it stands for
func (b *Bot) handleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.onInteraction(context.Background(), i)
}

func (b *Bot) onInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	if b.guildID != "" && i.GuildID != b.guildID {
		return
	}

	customID := i.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, CustomIDPrefix) {
		return
	}

	if err := b.api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		b.logger.Debug("failed to acknowledge interaction", zap.Error(err))
	}

	b.dispatch(ctx, i.ChannelID, strings.TrimPrefix(customID, CustomIDPrefix))
}

func (b *Bot) dispatch(ctx context.Context, channelID, text string) {
	reply := b.hub.Handle(ctx, ConversationKey(channelID), text)
	if reply.Silent {
		return
	}
	if err := b.SendReply(ctx, channelID, reply); err != nil {
		b.logger.Error("failed to send reply", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// SendReply renders a conversation reply with its options as buttons
func (b *Bot) SendReply(_ context.Context, channelID string, reply conversation.Reply) error {
	_, err := b.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    format.Truncate(format.ToDiscordMarkdown(reply.Text), maxMessageRunes),
		Components: components(reply.Options),
	})
	return err
}

func components(options []conversation.Option) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent

	for _, opt := range options {
		style := discordgo.PrimaryButton
		if !strings.HasPrefix(opt.Command, "/") || len(opt.Command) < 2 || opt.Command[1] < '0' || opt.Command[1] > '9' {
			style = discordgo.SecondaryButton
		}
		row = append(row, discordgo.Button{
			Label:    format.Truncate(opt.Label, maxButtonLabel),
			Style:    style,
			CustomID: CustomIDPrefix + opt.Command,
		})
		if len(row) == buttonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	if len(rows) > maxComponentRows {
		rows = rows[:maxComponentRows]
	}
	return rows
}
