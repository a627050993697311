package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Analysis is the structured result of scoring an inbound lead.
type Analysis struct {
	Intent    string `json:"intent"`
	Sentiment string `json:"sentiment"`
	Score     int    `json:"score"`
	Summary   string `json:"summary"`
}

// DefaultAnalysis is used when the provider fails or is not configured.
// Capture must never fail because scoring did.
func DefaultAnalysis() Analysis {
	return Analysis{Intent: IntentInfo, Sentiment: SentimentNeutral, Score: 50}
}

const analystInstruction = `You are a lead qualification analyst. Given a new inbound lead,
respond with a single JSON object and nothing else:
{"intent": one of ["Booking","Info","Pricing","Support","Spam"],
 "sentiment": one of ["Positive","Neutral","Negative"],
 "score": integer 0-100 (likelihood to convert),
 "summary": one short sentence}`

// Analyst scores new leads with a single non-streaming completion.
type Analyst struct {
	llm model.LLM
}

func NewAnalyst(llm model.LLM) *Analyst {
	return &Analyst{llm: llm}
}

// Analyze runs the qualification prompt over the lead's submitted details.
func (a *Analyst) Analyze(ctx context.Context, lead Lead) (Analysis, error) {
	if a == nil || a.llm == nil {
		return Analysis{}, fmt.Errorf("analyst not configured")
	}

	prompt := buildAnalysisPrompt(lead)
	req := &model.LLMRequest{
		Contents: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: analystInstruction}}},
			Temperature:       genai.Ptr[float32](0.2),
		},
	}

	var output string
	for resp, err := range a.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return Analysis{}, err
		}
		if resp != nil && resp.Content != nil {
			for _, part := range resp.Content.Parts {
				if part != nil {
					output += part.Text
				}
			}
		}
	}

	return parseAnalysis(output)
}

func buildAnalysisPrompt(lead Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	if lead.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", lead.Phone)
	}
	if lead.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	}
	if lead.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", lead.Source)
	}
	if lead.Notes != "" {
		fmt.Fprintf(&b, "Message: %s\n", lead.Notes)
	}
	return b.String()
}

func parseAnalysis(output string) (Analysis, error) {
	cleaned := strings.TrimSpace(output)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Models occasionally wrap the object in prose; extract the outermost braces.
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("unparseable analysis output: %w", err)
	}

	return normalizeAnalysis(analysis), nil
}

func normalizeAnalysis(a Analysis) Analysis {
	switch a.Intent {
	case IntentBooking, IntentInfo, IntentPricing, IntentSupport, IntentSpam:
	default:
		a.Intent = IntentInfo
	}
	switch a.Sentiment {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
	default:
		a.Sentiment = SentimentNeutral
	}
	if a.Score < 0 {
		a.Score = 0
	}
	if a.Score > 100 {
		a.Score = 100
	}
	return a
}
