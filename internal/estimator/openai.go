package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const systemPrompt = `You are a prediction market analyst. Given a market question, estimate the probability of each outcome based on your knowledge. Respond with a JSON object only, no other text:
{"side": "YES" or "NO", "confidence": 0.0-1.0, "probability": 0.0-1.0, "reasoning": "one or two sentences"}
"side" is the outcome you believe is more likely underpriced, "probability" is your estimate that that side resolves true, and "confidence" is how certain you are in your analysis.`

type OpenAIEstimator struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIEstimator(apiKey, model string, logger *zap.Logger) *OpenAIEstimator {
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &OpenAIEstimator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

func (e *OpenAIEstimator) Estimate(ctx context.Context, req Request) (Estimate, error) {
	prompt := buildPrompt(req)

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return Estimate{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Estimate{}, fmt.Errorf("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	est, err := parseEstimate(content)
	if err != nil {
		e.logger.Warn("unparseable estimate",
			zap.String("question", req.Question),
			zap.String("content", content),
			zap.Error(err))
		return Estimate{}, err
	}
	return est, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", req.Question)
	if req.Description != "" {
		desc := req.Description
		if len(desc) > 800 {
			desc = desc[:800]
		}
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}
	fmt.Fprintf(&b, "Current market prices: YES=%s NO=%s\n", req.YesPrice.StringFixed(3), req.NoPrice.StringFixed(3))
	if !req.EndTime.IsZero() {
		fmt.Fprintf(&b, "Market closes: %s\n", req.EndTime.UTC().Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

type rawEstimate struct {
	Side        string  `json:"side"`
	Confidence  float64 `json:"confidence"`
	Probability float64 `json:"probability"`
	Reasoning   string  `json:"reasoning"`
}

// parseEstimate extracts the JSON object from a completion. Models sometimes
// wrap the object in markdown fences or prose, so parsing is lenient: the
// first balanced object in the text wins.
func parseEstimate(content string) (Estimate, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Estimate{}, fmt.Errorf("no JSON object in response")
	}

	var raw rawEstimate
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return Estimate{}, fmt.Errorf("invalid estimate JSON: %w", err)
	}

	side := strings.ToUpper(strings.TrimSpace(raw.Side))
	if side != "YES" && side != "NO" {
		return Estimate{}, fmt.Errorf("invalid side %q", raw.Side)
	}
	if raw.Probability <= 0 || raw.Probability >= 1 {
		return Estimate{}, fmt.Errorf("probability %v out of (0,1)", raw.Probability)
	}

	conf := raw.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return Estimate{
		Side:        side,
		Confidence:  conf,
		Probability: decimal.NewFromFloat(raw.Probability),
		Rationale:   strings.TrimSpace(raw.Reasoning),
	}, nil
}
