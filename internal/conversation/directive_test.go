package conversation

import (
	"testing"
	"time"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Directive
	}{
		{
			name: "plain reply",
			raw:  "Sure, we can help with that. What day works for you?",
			want: Directive{Kind: DirectiveReply, Reply: "Sure, we can help with that. What day works for you?"},
		},
		{
			name: "reply is trimmed",
			raw:  "  Sounds good!  \n",
			want: Directive{Kind: DirectiveReply, Reply: "Sounds good!"},
		},
		{
			name: "escalate token alone",
			raw:  "ESCALATE",
			want: Directive{Kind: DirectiveEscalate},
		},
		{
			name: "escalate token embedded in prose",
			raw:  "I think we should ESCALATE this one.",
			want: Directive{Kind: DirectiveEscalate},
		},
		{
			name: "lowercase escalate is just a word",
			raw:  "We can escalate your ticket if needed.",
			want: Directive{Kind: DirectiveReply, Reply: "We can escalate your ticket if needed."},
		},
		{
			name: "book directive with day and time",
			raw:  "BOOK|2026-09-04|10am",
			want: Directive{Kind: DirectiveBook, Day: "2026-09-04", TimeHint: "10am"},
		},
		{
			name: "book directive with weekday only",
			raw:  "BOOK|friday",
			want: Directive{Kind: DirectiveBook, Day: "friday"},
		},
		{
			name: "book directive tolerates surrounding whitespace",
			raw:  "  BOOK|tomorrow|morning \n",
			want: Directive{Kind: DirectiveBook, Day: "tomorrow", TimeHint: "morning"},
		},
		{
			name: "book mentioned mid-sentence is a reply",
			raw:  "I can BOOK|friday for you if you like.",
			want: Directive{Kind: DirectiveReply, Reply: "I can BOOK|friday for you if you like."},
		},
		{
			name: "escalate wins over book",
			raw:  "BOOK|friday ESCALATE",
			want: Directive{Kind: DirectiveEscalate},
		},
		{
			name: "empty output",
			raw:  "",
			want: Directive{Kind: DirectiveReply, Reply: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDirective(tt.raw)
			if got != tt.want {
				t.Errorf("ParseDirective(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.August, 26, 9, 0, 0, 0, loc) // a Wednesday

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"iso date", "2026-09-04", "2026-09-04"},
		{"today", "today", "2026-08-26"},
		{"tomorrow", "tomorrow", "2026-08-27"},
		{"weekday later this week", "friday", "2026-08-28"},
		{"weekday earlier in week rolls forward", "monday", "2026-08-31"},
		{"same weekday means next week", "wednesday", "2026-09-02"},
		{"weekday is case-insensitive", "Friday", "2026-08-28"},
		{"month day this year", "September 4", "2026-09-04"},
		{"short month day", "Sep 4", "2026-09-04"},
		{"past month day rolls to next year", "January 5", "2027-01-05"},
		{"garbage falls back to tomorrow", "whenever", "2026-08-27"},
		{"empty falls back to tomorrow", "", "2026-08-27"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDay(tt.token, now, loc).Format("2006-01-02")
			if got != tt.want {
				t.Errorf("ParseDay(%q) = %s, want %s", tt.token, got, tt.want)
			}
		})
	}
}
