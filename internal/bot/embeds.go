package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"deobf-bot/internal/ledger"
	"deobf-bot/internal/pipeline"
)

const (
	colorSuccess = 0x00FF00
	colorFailure = 0xFF0000
	colorWarning = 0xFFA500
	colorInfo    = 0x5865F2
)

// maxLinksShown caps the link list so huge outputs do not blow the embed
// field size limit.
const maxLinksShown = 10

func helpEmbed(prefix string, enabled bool) *discordgo.MessageEmbed {
	creditNote := fmt.Sprintf("Each deobfuscation costs %d token. You start with %d and get %d more every day.",
		ledger.CostPerJob, ledger.InitialCredit, ledger.DailyGrant)
	if !enabled {
		creditNote = "The token system is currently disabled, all commands are free."
	}
	return &discordgo.MessageEmbed{
		Title: "📖 Commands",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: prefix + "deobf", Value: "Deobfuscate an attached `.lua`/`.txt` file, or pass a URL to one.", Inline: false},
			{Name: prefix + "creds", Value: "Show your token balance.", Inline: false},
			{Name: prefix + "gift <user_id> <amount>", Value: "Gift tokens to another user.", Inline: false},
			{Name: prefix + "token [on|off]", Value: "Admin only. Show or toggle the token system.", Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: creditNote},
	}
}

func credsEmbed(balance int, enabled bool) *discordgo.MessageEmbed {
	if !enabled {
		return &discordgo.MessageEmbed{
			Title:       "💳 Your Tokens",
			Description: "Token system is disabled, enjoy unlimited deobfuscations!",
			Color:       colorInfo,
		}
	}
	return &discordgo.MessageEmbed{
		Title:       "💳 Your Tokens",
		Description: fmt.Sprintf("You have **%d** token(s).", balance),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("You receive %d token(s) every day.", ledger.DailyGrant),
		},
	}
}

func giftEmbed(recipient string, amount int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎁 Gift Sent",
		Description: fmt.Sprintf("Gifted **%d** token(s) to <@%s>.", amount, recipient),
		Color:       colorSuccess,
	}
}

func tokenStatusEmbed(enabled bool, prefix string) *discordgo.MessageEmbed {
	status := "🔴 Disabled"
	if enabled {
		status = "🟢 Enabled"
	}
	return &discordgo.MessageEmbed{
		Title:       "⚙️ Token System",
		Description: "Current status: " + status,
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Use %stoken on or %stoken off to change it.", prefix, prefix),
		},
	}
}

func toggleEmbed(enabled bool, admin string) *discordgo.MessageEmbed {
	if enabled {
		return &discordgo.MessageEmbed{
			Title:       "🟢 Token System Enabled",
			Description: "Deobfuscations now cost tokens again.",
			Color:       colorSuccess,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Changed by " + admin},
		}
	}
	return &discordgo.MessageEmbed{
		Title:       "🔴 Token System Disabled",
		Description: "All deobfuscations are free until it is re-enabled.",
		Color:       colorWarning,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Changed by " + admin},
	}
}

func failureEmbed(failure *pipeline.Failure, requester string) *discordgo.MessageEmbed {
	title := "❌ Deobfuscation Failed"
	color := colorFailure
	switch failure.Kind {
	case pipeline.FailInsufficientCredit:
		title = "💳 Not Enough Tokens"
		color = colorWarning
	case pipeline.FailFileTooLarge:
		title = "📦 File Too Large"
	case pipeline.FailToolTimeout:
		title = "⏱️ Deobfuscation Timed Out"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: failure.Cause,
		Color:       color,
		Footer:      footerFor(requester),
	}
}

func successEmbed(result *pipeline.Result, enabled bool, requester string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "✅ Deobfuscation Complete",
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "📊 Stats",
				Value: fmt.Sprintf("Input: %s\nOutput: %s\nTook: %.1fs",
					formatBytes(result.OriginalSize),
					formatBytes(result.OutputSize),
					result.Duration.Seconds()),
				Inline: true,
			},
		},
		Footer: footerFor(requester),
	}

	switch {
	case enabled && result.Charged:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "💳 Tokens",
			Value:  fmt.Sprintf("Used %d, %d remaining", ledger.CostPerJob, result.Balance),
			Inline: true,
		})
	case !enabled:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "💳 Tokens",
			Value:  "FREE MODE, no tokens used",
			Inline: true,
		})
	}

	if len(result.Links) > 0 {
		shown := result.Links
		extra := 0
		if len(shown) > maxLinksShown {
			extra = len(shown) - maxLinksShown
			shown = shown[:maxLinksShown]
		}
		value := strings.Join(shown, "\n")
		if extra > 0 {
			value += fmt.Sprintf("\n... and %d more", extra)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("🔗 Links Found (%d)", len(result.Links)),
			Value:  value,
			Inline: false,
		})
	}
	return embed
}

func footerFor(requester string) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Requested by %s • %s", requester, time.Now().Format("01/02/06, 3:04 PM")),
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
