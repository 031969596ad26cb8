package bot

import (
	"strings"
	"testing"
	"time"

	"deobf-bot/internal/pipeline"
)

func TestSuccessEmbedTruncatesLinkList(t *testing.T) {
	links := make([]string, 14)
	for i := range links {
		links[i] = "https://example.com/" + string(rune('a'+i))
	}
	result := &pipeline.Result{
		OriginalSize: 2048,
		OutputSize:   4096,
		Duration:     1500 * time.Millisecond,
		Links:        links,
	}

	embed := successEmbed(result, false, "tester")

	var linkField string
	for _, f := range embed.Fields {
		if strings.HasPrefix(f.Name, "🔗") {
			linkField = f.Value
		}
	}
	if linkField == "" {
		t.Fatal("expected a links field")
	}
	if got := strings.Count(linkField, "https://"); got != maxLinksShown {
		t.Fatalf("shown links = %d, want %d", got, maxLinksShown)
	}
	if !strings.Contains(linkField, "... and 4 more") {
		t.Fatalf("missing overflow marker in %q", linkField)
	}
}

func TestSuccessEmbedTokenField(t *testing.T) {
	result := &pipeline.Result{Charged: false, Duration: time.Second}

	// Enabled but uncharged (debit raced away) shows no token field.
	embed := successEmbed(result, true, "tester")
	for _, f := range embed.Fields {
		if strings.Contains(f.Name, "Tokens") {
			t.Fatal("token field present on uncharged job")
		}
	}

	// Disabled system advertises free mode.
	embed = successEmbed(result, false, "tester")
	found := false
	for _, f := range embed.Fields {
		if strings.Contains(f.Value, "FREE MODE") {
			found = true
		}
	}
	if !found {
		t.Fatal("free mode notice missing with the system disabled")
	}
}

func TestFailureEmbedColors(t *testing.T) {
	warn := failureEmbed(&pipeline.Failure{Kind: pipeline.FailInsufficientCredit, Cause: "x"}, "tester")
	if warn.Color != colorWarning {
		t.Fatalf("insufficient credit color = %#x, want %#x", warn.Color, colorWarning)
	}
	hard := failureEmbed(&pipeline.Failure{Kind: pipeline.FailToolRejected, Cause: "x"}, "tester")
	if hard.Color != colorFailure {
		t.Fatalf("tool rejected color = %#x, want %#x", hard.Color, colorFailure)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.in); got != c.want {
			t.Errorf("formatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
