// Package bot is the thin presentation layer: it maps chat commands onto the
// ledger and the job pipeline and renders their structured results as
// embeds. No business rules live here.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"deobf-bot/internal/ledger"
	"deobf-bot/internal/pipeline"
)

type Bot struct {
	session  *discordgo.Session
	ledger   *ledger.Ledger
	pipeline *pipeline.Pipeline
	log      *log.Logger

	prefix      string
	guildID     string
	adminRoleID string
	http        *http.Client
}

type Options struct {
	Token       string
	Prefix      string
	GuildID     string
	AdminRoleID string
}

func New(opts Options, l *ledger.Ledger, p *pipeline.Pipeline, logger *log.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	if logger == nil {
		logger = log.Default()
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "."
	}

	b := &Bot{
		session:     session,
		ledger:      l,
		pipeline:    p,
		log:         logger,
		prefix:      prefix,
		guildID:     strings.TrimSpace(opts.GuildID),
		adminRoleID: strings.TrimSpace(opts.AdminRoleID),
		http:        &http.Client{Timeout: 30 * time.Second},
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessage)
	return b, nil
}

// Run opens the gateway session and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	<-ctx.Done()
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("logged in",
		"user", r.User.Username,
		"id", r.User.ID,
		"credit_system_enabled", b.ledger.Enabled())
}

// allowedHere enforces the guild restriction for every command.
func (b *Bot) allowedHere(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.GuildID == "" {
		b.reply(s, m, "❌ This bot only works in the authorized server!")
		return false
	}
	if b.guildID != "" && m.GuildID != b.guildID {
		b.reply(s, m, "❌ This bot is not authorized to work in this server!")
		return false
	}
	return true
}

func (b *Bot) isAdmin(m *discordgo.MessageCreate) bool {
	if b.adminRoleID == "" || m.Member == nil {
		return false
	}
	for _, role := range m.Member.Roles {
		if role == b.adminRoleID {
			return true
		}
	}
	return false
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		b.log.Warn("reply failed", "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) replyEmbed(s *discordgo.Session, m *discordgo.MessageCreate, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbedReply(m.ChannelID, embed, m.Reference()); err != nil {
		b.log.Warn("embed reply failed", "channel", m.ChannelID, "err", err)
	}
}
