package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

// FallbackReply is sent to the customer when generation fails. Adapters
// always receive some text to dispatch, never an error.
const FallbackReply = "I'm currently experiencing high demand. Please try again in a moment, or call us directly for immediate assistance! 📞"

const (
	generateMaxAttempts = 3
	defaultTemperature  = 0.7
)

// Intent labels attached to inbound messages for analytics and routing.
const (
	IntentBooking   = "booking"
	IntentFAQ       = "faq"
	IntentPricing   = "pricing"
	IntentHours     = "hours"
	IntentLocation  = "location"
	IntentComplaint = "complaint"
	IntentOther     = "other"
)

// IntentResult is the classifier's output. Confidence is always in [0,1].
type IntentResult struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
}

// Generator wraps the completion provider with bounded retry on rate limits
// and a deterministic fallback on exhaustion.
type Generator struct {
	llm    LLMClient
	logger *logging.Logger
	sleep  func(ctx context.Context, d time.Duration)
}

// NewGenerator creates a response generator over the given LLM client.
func NewGenerator(llm LLMClient, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{llm: llm, logger: logger, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Generate produces a reply for the user message given the system prompt and
// prior history. Up to three attempts; rate limits back off 2^attempt
// seconds between tries. Any other failure, or exhaustion, yields the fixed
// fallback text. Never returns an error.
func (g *Generator) Generate(ctx context.Context, systemPrompt string, history []Message, userMessage string) string {
	tracer := otel.Tracer("jawab.internal.conversation")
	ctx, span := tracer.Start(ctx, "generator.generate")
	defer span.End()

	req := LLMRequest{
		System:      []string{systemPrompt},
		Messages:    toChatMessages(history, userMessage),
		Temperature: defaultTemperature,
	}

	for attempt := 0; attempt < generateMaxAttempts; attempt++ {
		resp, err := g.llm.Complete(ctx, req)
		if err == nil {
			text := strings.TrimSpace(resp.Text)
			if text != "" {
				span.SetAttributes(attribute.Int("attempts", attempt+1))
				return text
			}
			err = errors.New("conversation: empty completion")
		}

		if errors.Is(err, ErrRateLimited) && attempt < generateMaxAttempts-1 {
			wait := time.Duration(1<<attempt) * time.Second
			g.logger.Warn("completion rate limited, backing off",
				"attempt", attempt+1,
				"wait", wait.String(),
			)
			g.sleep(ctx, wait)
			continue
		}

		span.RecordError(err)
		g.logger.Error("completion failed, sending fallback reply",
			"attempt", attempt+1,
			"error", err,
		)
		return FallbackReply
	}
	return FallbackReply
}

func toChatMessages(history []Message, userMessage string) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history)+1)
	for _, m := range history {
		role := ChatRoleUser
		if m.Role == RoleModel {
			role = ChatRoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, ChatMessage{Role: ChatRoleUser, Content: userMessage})
	return msgs
}

var validIntents = map[string]struct{}{
	IntentBooking:   {},
	IntentFAQ:       {},
	IntentPricing:   {},
	IntentHours:     {},
	IntentLocation:  {},
	IntentComplaint: {},
	IntentOther:     {},
}

// ClassifyIntent extracts a coarse intent label from a customer message.
// Best effort: any provider or parse failure yields {other, 0} so intent
// never blocks the reply flow. Confidence is clamped to [0,1].
func (g *Generator) ClassifyIntent(ctx context.Context, message string) IntentResult {
	prompt := fmt.Sprintf(`Analyze this customer message and extract the intent.

Message: %q

Respond in JSON format only:
{
  "intent": "booking" | "faq" | "pricing" | "hours" | "location" | "complaint" | "other",
  "confidence": 0.0-1.0,
  "entities": {
    "service": "if mentioned",
    "date": "if mentioned",
    "time": "if mentioned"
  }
}`, message)

	resp, err := g.llm.Complete(ctx, LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
	})
	if err != nil {
		g.logger.Warn("intent classification failed", "error", err)
		return IntentResult{Intent: IntentOther, Confidence: 0}
	}

	result, ok := parseIntentJSON(resp.Text)
	if !ok {
		g.logger.Warn("intent classification returned unparseable output")
		return IntentResult{Intent: IntentOther, Confidence: 0}
	}
	return result
}

// parseIntentJSON pulls the first JSON object out of model output, which may
// be wrapped in prose or code fences.
func parseIntentJSON(text string) (IntentResult, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return IntentResult{}, false
	}

	var result IntentResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return IntentResult{}, false
	}

	if _, ok := validIntents[result.Intent]; !ok {
		result.Intent = IntentOther
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, true
}
