package links

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
		{
			name: "clean url round-trips unchanged",
			in:   "http://example.com/path?q=1",
			want: []string{"http://example.com/path?q=1"},
		},
		{
			name: "two links separated by whitespace",
			in:   "check http://a.com/x and http://b.com/y",
			want: []string{"http://a.com/x", "http://b.com/y"},
		},
		{
			name: "concatenated markers keep only the first",
			in:   "http://a.comhttp://b.com",
			want: []string{"http://a.com"},
		},
		{
			name: "trailing punctuation stripped repeatedly",
			in:   "see https://a.com/x)!?.",
			want: []string{"https://a.com/x"},
		},
		{
			name: "quotes and brackets terminate",
			in:   `local u = "https://a.com/x" .. '[https://b.com/y]'`,
			want: []string{"https://a.com/x", "https://b.com/y"},
		},
		{
			name: "duplicates collapse in first-seen order",
			in:   "http://b.com http://a.com http://b.com",
			want: []string{"http://b.com", "http://a.com"},
		},
		{
			name: "promo invite suppressed",
			in:   "-- Deobfuscated By SD [-- https://discord.gg/Y3yt5XMCGj --]",
			want: nil,
		},
		{
			name: "hostless candidate rejected",
			in:   "http://localhost/x and http://nope",
			want: nil,
		},
		{
			name: "percent-decoded",
			in:   "https://a.com/a%20b",
			want: []string{"https://a.com/a b"},
		},
		{
			name: "scheme lookalike ignored",
			in:   "httpx://a.com and ahttp://b.com/z",
			want: []string{"http://b.com/z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
