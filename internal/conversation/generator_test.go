package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM returns canned results in order, then repeats the last one.
type scriptedLLM struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	text string
	err  error
}

func (s *scriptedLLM) Complete(_ context.Context, _ LLMRequest) (LLMResponse, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	r := s.results[idx]
	return LLMResponse{Text: r.text}, r.err
}

func newTestGenerator(llm LLMClient) (*Generator, *[]time.Duration) {
	g := NewGenerator(llm, nil)
	var waits []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) {
		waits = append(waits, d)
	}
	return g, &waits
}

func TestGenerate_Success(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{text: "Hi there! How can I help?"}}}
	g, _ := newTestGenerator(llm)

	reply := g.Generate(context.Background(), "prompt", nil, "hello")
	assert.Equal(t, "Hi there! How can I help?", reply)
	assert.Equal(t, 1, llm.calls)
}

func TestGenerate_RateLimitedTwiceThenSucceeds(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{
		{err: ErrRateLimited},
		{err: ErrRateLimited},
		{text: "We open at 9am!"},
	}}
	g, waits := newTestGenerator(llm)

	reply := g.Generate(context.Background(), "prompt", nil, "when do you open?")
	assert.Equal(t, "We open at 9am!", reply)
	assert.Equal(t, 3, llm.calls)
	// backoff doubles: 2^0, 2^1 seconds
	require.Len(t, *waits, 2)
	assert.Equal(t, 1*time.Second, (*waits)[0])
	assert.Equal(t, 2*time.Second, (*waits)[1])
}

func TestGenerate_RateLimitExhaustion(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{err: ErrRateLimited}}}
	g, _ := newTestGenerator(llm)

	reply := g.Generate(context.Background(), "prompt", nil, "hello")
	assert.Equal(t, FallbackReply, reply)
	assert.Equal(t, 3, llm.calls)
}

func TestGenerate_NonRetryableError(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{err: errors.New("invalid api key")}}}
	g, waits := newTestGenerator(llm)

	reply := g.Generate(context.Background(), "prompt", nil, "hello")
	assert.Equal(t, FallbackReply, reply)
	assert.Equal(t, 1, llm.calls)
	assert.Empty(t, *waits)
}

func TestGenerate_IncludesHistory(t *testing.T) {
	var captured LLMRequest
	llm := captureLLM{req: &captured}
	g := NewGenerator(llm, nil)

	history := []Message{
		{Role: RoleUser, Content: "Do you do haircuts?"},
		{Role: RoleModel, Content: "Yes we do!"},
	}
	g.Generate(context.Background(), "system prompt", history, "How much?")

	require.Len(t, captured.Messages, 3)
	assert.Equal(t, ChatRoleUser, captured.Messages[0].Role)
	assert.Equal(t, ChatRoleAssistant, captured.Messages[1].Role)
	assert.Equal(t, "How much?", captured.Messages[2].Content)
	require.Len(t, captured.System, 1)
	assert.Equal(t, "system prompt", captured.System[0])
}

type captureLLM struct {
	req *LLMRequest
}

func (c captureLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	*c.req = req
	return LLMResponse{Text: "ok"}, nil
}

func TestClassifyIntent_ParsesWrappedJSON(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{
		text: "Sure! Here is the analysis:\n```json\n{\"intent\": \"booking\", \"confidence\": 0.92, \"entities\": {\"service\": \"haircut\"}}\n```",
	}}}
	g, _ := newTestGenerator(llm)

	result := g.ClassifyIntent(context.Background(), "Can I book a haircut tomorrow?")
	assert.Equal(t, IntentBooking, result.Intent)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
	assert.Equal(t, "haircut", result.Entities["service"])
}

func TestClassifyIntent_ClampsConfidence(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{
		text: `{"intent": "pricing", "confidence": 3.5}`,
	}}}
	g, _ := newTestGenerator(llm)

	result := g.ClassifyIntent(context.Background(), "how much is a massage?")
	assert.Equal(t, IntentPricing, result.Intent)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassifyIntent_UnknownLabelBecomesOther(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{
		text: `{"intent": "greeting", "confidence": 0.8}`,
	}}}
	g, _ := newTestGenerator(llm)

	result := g.ClassifyIntent(context.Background(), "hi")
	assert.Equal(t, IntentOther, result.Intent)
}

func TestClassifyIntent_ProviderFailure(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{err: errors.New("boom")}}}
	g, _ := newTestGenerator(llm)

	result := g.ClassifyIntent(context.Background(), "hello")
	assert.Equal(t, IntentOther, result.Intent)
	assert.Zero(t, result.Confidence)
}

func TestClassifyIntent_UnparseableOutput(t *testing.T) {
	llm := &scriptedLLM{results: []scriptedResult{{text: "I could not classify that."}}}
	g, _ := newTestGenerator(llm)

	result := g.ClassifyIntent(context.Background(), "hello")
	assert.Equal(t, IntentOther, result.Intent)
	assert.Zero(t, result.Confidence)
}
