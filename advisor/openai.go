package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultModel = openai.GPT4oMini

const systemPrompt = `You are a Salesforce data quality expert. You assess candidate records against an object's validation rules before they are loaded into a sandbox org.

Respond with a single JSON object and nothing else:
{
  "valid": bool,
  "riskScore": number between 0 and 10,
  "violations": [{"field": string, "ruleId": string, "message": string}],
  "suggestions": [{"field": string, "value": any, "confidence": number between 0 and 1, "reason": string}]
}

In Salesforce a validation rule formula expresses the FAILURE condition: when it evaluates to true the record is rejected. Pay particular attention to rules the local evaluator marked as not executable locally.`

// OpenAIAdvisor analyzes records through the OpenAI chat completion
// API. Safe for concurrent use.
type OpenAIAdvisor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// OpenAIOption configures an OpenAIAdvisor.
type OpenAIOption func(*OpenAIAdvisor)

// WithModel overrides the chat model.
func WithModel(model string) OpenAIOption {
	return func(a *OpenAIAdvisor) {
		if model != "" {
			a.model = model
		}
	}
}

// WithLogger attaches a logger for failure diagnostics.
func WithLogger(logger *zap.Logger) OpenAIOption {
	return func(a *OpenAIAdvisor) {
		if logger != nil {
			a.logger = logger.Named("advisor")
		}
	}
}

// NewOpenAIAdvisor creates an advisor backed by the OpenAI API.
func NewOpenAIAdvisor(apiKey string, opts ...OpenAIOption) (*OpenAIAdvisor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("advisor: api key is required")
	}
	a := &OpenAIAdvisor{
		client: openai.NewClient(apiKey),
		model:  defaultModel,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewOpenAIAdvisorWithClient creates an advisor around an existing
// client, for proxies and tests.
func NewOpenAIAdvisorWithClient(client *openai.Client, opts ...OpenAIOption) *OpenAIAdvisor {
	a := &OpenAIAdvisor{
		client: client,
		model:  defaultModel,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeRecord sends the record and its rule context to the model and
// parses the structured verdict.
func (a *OpenAIAdvisor) AnalyzeRecord(ctx context.Context, req *Request) (*Analysis, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("advisor: build prompt: %w", err)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("advisor: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("advisor: empty response")
	}

	analysis, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		a.logger.Warn("unparseable advisor response",
			zap.String("object", req.ObjectName),
			zap.Error(err))
		return nil, err
	}
	return analysis, nil
}

func buildPrompt(req *Request) (string, error) {
	recordJSON, err := json.MarshalIndent(req.Record, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Object: %s\n\nRecord:\n%s\n\nValidation rules:\n", req.ObjectName, recordJSON)

	for _, r := range req.Rules {
		if !r.Active {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", r.Name, r.ID, r.Formula)
		if r.ErrorMessage != "" {
			fmt.Fprintf(&sb, "  error message: %s\n", r.ErrorMessage)
		}
		if !r.Supported {
			fmt.Fprintf(&sb, "  not executable locally (uses: %s)\n", strings.Join(r.UnsupportedFunctions, ", "))
		}
	}

	if len(req.LocalFindings) > 0 {
		sb.WriteString("\nLocal validation already flagged:\n")
		for _, f := range req.LocalFindings {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}

	sb.WriteString("\nAssess the record and respond with the JSON verdict.")
	return sb.String(), nil
}

// parseAnalysis decodes the model's JSON verdict, tolerating markdown
// code fences and clamping scores to their documented ranges.
func parseAnalysis(content string) (*Analysis, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	if analysis.RiskScore < 0 {
		analysis.RiskScore = 0
	}
	if analysis.RiskScore > 10 {
		analysis.RiskScore = 10
	}
	for i := range analysis.Suggestions {
		if analysis.Suggestions[i].Confidence < 0 {
			analysis.Suggestions[i].Confidence = 0
		}
		if analysis.Suggestions[i].Confidence > 1 {
			analysis.Suggestions[i].Confidence = 1
		}
	}
	return &analysis, nil
}
