package conversation

import "strings"

// Control tokens the responder model is instructed to emit. Matching is
// case-sensitive; a lowercase "escalate" in normal prose must not trip the
// state machine.
const (
	escalateToken = "ESCALATE"
	bookPrefix    = "BOOK|"
)

// Directive kinds produced by parsing a model reply.
const (
	DirectiveReply    = "reply"
	DirectiveEscalate = "escalate"
	DirectiveBook     = "book"
)

// Directive is the parsed outcome of one model turn.
type Directive struct {
	Kind string

	// Reply carries the verbatim model text for DirectiveReply.
	Reply string

	// Day and TimeHint are the raw tokens from a BOOK directive. TimeHint is
	// advisory; the allocator always books the first slot of the window.
	Day      string
	TimeHint string
}

// ParseDirective interprets a raw model reply. ESCALATE anywhere in the text
// wins over a BOOK prefix, so a model that waffles between the two always
// resolves to the safe outcome.
func ParseDirective(raw string) Directive {
	if strings.Contains(raw, escalateToken) {
		return Directive{Kind: DirectiveEscalate}
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, bookPrefix) {
		parts := strings.SplitN(trimmed, "|", 3)
		d := Directive{Kind: DirectiveBook}
		if len(parts) > 1 {
			d.Day = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			d.TimeHint = strings.TrimSpace(parts[2])
		}
		return d
	}

	return Directive{Kind: DirectiveReply, Reply: trimmed}
}
