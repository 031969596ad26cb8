package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"deobf-bot/internal/ledger"
	"deobf-bot/internal/pipeline"
)

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, b.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(m.Content, b.prefix))
	if len(fields) == 0 {
		return
	}
	command, args := fields[0], fields[1:]

	switch command {
	case "help", "creds", "gift", "token", "deobf":
	default:
		return
	}
	if !b.allowedHere(s, m) {
		return
	}

	switch command {
	case "help":
		b.cmdHelp(s, m)
	case "creds":
		b.cmdCreds(s, m)
	case "gift":
		b.cmdGift(s, m, args)
	case "token":
		b.cmdToken(s, m, args)
	case "deobf":
		b.cmdDeobf(s, m, args)
	}
}

func (b *Bot) cmdHelp(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.replyEmbed(s, m, helpEmbed(b.prefix, b.ledger.Enabled()))
}

func (b *Bot) cmdCreds(s *discordgo.Session, m *discordgo.MessageCreate) {
	balance, err := b.ledger.Balance(m.Author.ID)
	if err != nil {
		b.log.Error("balance lookup failed", "user", m.Author.ID, "err", err)
		b.reply(s, m, "❌ Could not read your balance, please try again.")
		return
	}
	b.replyEmbed(s, m, credsEmbed(balance, b.ledger.Enabled()))
}

func (b *Bot) cmdGift(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.ledger.Enabled() {
		b.reply(s, m, "❌ Token system is currently disabled! Gifting is not available.")
		return
	}
	if len(args) < 2 {
		b.reply(s, m, fmt.Sprintf("❌ Usage: `%sgift <user_id> <amount>`", b.prefix))
		return
	}
	recipient := strings.Trim(args[0], "<@!>")
	amount, err := strconv.Atoi(args[1])
	if err != nil || amount <= 0 {
		b.reply(s, m, "❌ Amount must be a number greater than 0!")
		return
	}
	if recipient == m.Author.ID {
		b.reply(s, m, "❌ You cannot gift tokens to yourself!")
		return
	}

	if err := b.ledger.Transfer(m.Author.ID, recipient, amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			balance, balanceErr := b.ledger.Balance(m.Author.ID)
			if balanceErr != nil {
				b.log.Error("balance lookup failed", "user", m.Author.ID, "err", balanceErr)
			}
			b.reply(s, m, fmt.Sprintf("❌ You don't have enough tokens! You only have %d token(s).", balance))
			return
		}
		b.log.Error("gift transfer failed", "from", m.Author.ID, "to", recipient, "err", err)
		b.reply(s, m, "❌ Gift failed, please try again.")
		return
	}

	b.log.Info("gift sent", "from", m.Author.ID, "to", recipient, "amount", amount)
	b.replyEmbed(s, m, giftEmbed(recipient, amount))
}

func (b *Bot) cmdToken(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(m) {
		b.reply(s, m, "❌ You do not have permission to use this command!")
		return
	}
	if len(args) == 0 {
		b.replyEmbed(s, m, tokenStatusEmbed(b.ledger.Enabled(), b.prefix))
		return
	}

	var enable bool
	switch strings.ToLower(args[0]) {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		b.reply(s, m, fmt.Sprintf("❌ Invalid option! Use `%stoken on` or `%stoken off`", b.prefix, b.prefix))
		return
	}

	if err := b.ledger.SetEnabled(enable); err != nil {
		if errors.Is(err, ledger.ErrUnchanged) {
			state := "disabled"
			if enable {
				state = "enabled"
			}
			b.reply(s, m, fmt.Sprintf("⚠️ Token system is already %s!", state))
			return
		}
		b.log.Error("toggle failed", "err", err)
		b.reply(s, m, "❌ Could not change the token system state.")
		return
	}

	b.log.Info("token system toggled", "enabled", enable, "by", m.Author.ID)
	b.replyEmbed(s, m, toggleEmbed(enable, authorName(m)))
}

func (b *Bot) cmdDeobf(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	req := pipeline.Request{RequesterID: m.Author.ID}

	switch {
	case len(m.Attachments) > 0:
		att := m.Attachments[0]
		if int64(att.Size) > pipeline.MaxInputSize {
			b.replyEmbed(s, m, failureEmbed(&pipeline.Failure{
				Kind:  pipeline.FailFileTooLarge,
				Cause: "file too large, maximum size is 5MB",
			}, authorName(m)))
			return
		}
		data, err := b.fetchAttachment(att.URL)
		if err != nil {
			b.log.Warn("attachment fetch failed", "url", att.URL, "err", err)
			b.replyEmbed(s, m, failureEmbed(&pipeline.Failure{
				Kind:  pipeline.FailDownloadFailed,
				Cause: "could not download the attachment",
			}, authorName(m)))
			return
		}
		req.Attachment = &pipeline.Attachment{Data: data, Filename: att.Filename, Size: int64(att.Size)}
	case len(args) > 0:
		req.SourceURL = args[0]
	default:
		b.reply(s, m, "Please upload a file with the command or pass a URL")
		return
	}

	loading, err := s.ChannelMessageSendReply(m.ChannelID, "⏳ Deobfuscating the file...", m.Reference())
	if err != nil {
		b.log.Warn("loading message failed", "err", err)
	}

	result, failure := b.pipeline.Process(context.Background(), req)
	if failure != nil {
		embed := failureEmbed(failure, authorName(m))
		if loading != nil {
			if _, err := s.ChannelMessageEditEmbed(m.ChannelID, loading.ID, embed); err == nil {
				return
			}
		}
		b.replyEmbed(s, m, embed)
		return
	}

	if loading != nil {
		_ = s.ChannelMessageDelete(m.ChannelID, loading.ID)
	}
	b.deliver(s, m, result)
}

func (b *Bot) deliver(s *discordgo.Session, m *discordgo.MessageCreate, result *pipeline.Result) {
	message := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{successEmbed(result, b.ledger.Enabled(), authorName(m))},
		Files: []*discordgo.File{{
			Name:        result.Filename,
			ContentType: "text/plain",
			Reader:      strings.NewReader(string(result.Artifact)),
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Decompile The Output Code",
						Style: discordgo.LinkButton,
						URL:   "https://luadec.metaworm.site/",
					},
				},
			},
		},
		Reference: m.Reference(),
	}
	if _, err := s.ChannelMessageSendComplex(m.ChannelID, message); err != nil {
		b.log.Error("delivery failed", "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) fetchAttachment(url string) ([]byte, error) {
	resp, err := b.http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("attachment fetch status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, pipeline.MaxInputSize+1))
}

func authorName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.Username
}
