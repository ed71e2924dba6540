package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// AskAgent answers one natural-language business question, grounded in the
// aggregate summaries built from the two cleaned boards. The model is told
// to use the embedded figures verbatim and never re-derive them.
func AskAgent(cfg Config, deals, workOrders Table, question string) (string, LLMUsage, error) {
	systemPrompt, userPrompt := buildAgentPrompts(deals, workOrders, question)
	log.Printf("llm ask provider=%s question_len=%d", cfg.LLMProvider, len(question))
	return completeLLM(cfg, systemPrompt, userPrompt)
}

// GenerateExecutiveSummary produces the five-bullet leadership summary from
// the metrics mapping.
func GenerateExecutiveSummary(cfg Config, m Metrics) (string, LLMUsage, error) {
	systemPrompt, userPrompt := buildExecutiveSummaryPrompts(m)
	log.Printf("llm brief provider=%s", cfg.LLMProvider)
	return completeLLM(cfg, systemPrompt, userPrompt)
}

func buildAgentPrompts(deals, workOrders Table, question string) (string, string) {
	systemPrompt := `You are an expert AI Business Intelligence Agent. Answer founder-level business questions using ONLY the aggregated data provided, calculated in real time from the company's Monday.com boards.

Rules:
1. Provide a direct, factual answer first. Format clearly.
2. If asked to sum or show revenue across sectors, format the answer like this:
   Sector A = $#,###
   Sector B = $#,###
   -------------------
   Total Revenue = $#,###
3. Be extremely concise. Do not write long generic explanations.
4. Use a highly professional tone. No fluffy intros.
5. If asked about the "highest", "top", or a specific client, respond directly using the "Top 5 Deals" list provided.
6. Do NOT do manual decimal math. Use the exact text/numbers provided in the summary exactly as they appear.`

	userPrompt := fmt.Sprintf("%s\n%s\nUser Question: %s",
		BuildDealsSummary(deals), BuildWorkOrdersSummary(workOrders), question)
	return systemPrompt, userPrompt
}

func buildExecutiveSummaryPrompts(m Metrics) (string, string) {
	systemPrompt := `You are an AI Business Intelligence Analyst.
Generate a very concise 5-bullet executive Leadership Summary using ONLY the exact data provided.
Format clearly with emojis. Identify one hypothetical operational risk based on these metrics.`

	userPrompt := fmt.Sprintf(`%s: %s
%s: %s
%s: %s
%s: %s
%s: %d
%s: %d`,
		MetricTotalPipelineValue, formatMoney(m.TotalPipelineValue),
		MetricExpectedRevenue, formatMoney(m.ExpectedRevenue),
		MetricTopSector, m.TopSector,
		MetricCompletionRate, m.CompletionRate,
		MetricActiveProjects, m.ActiveProjects,
		MetricCompletedProjects, m.CompletedProjects)
	return systemPrompt, userPrompt
}

func completeLLM(cfg Config, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	switch cfg.LLMProvider {
	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = defaultOpenAIModel
		}
		return callOpenAI(cfg.OpenAIAPIKey, model, systemPrompt, userPrompt)
	default:
		model := cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		return callAnthropic(cfg.AnthropicAPIKey, model, systemPrompt, userPrompt)
	}
}

func callAnthropic(apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d", len(block.Text), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", LLMUsage{}, fmt.Errorf("parsing OpenAI response: %w", err)
	}

	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}

	if len(openAIResp.Choices) == 0 {
		return "", LLMUsage{}, fmt.Errorf("no choices in OpenAI response")
	}
	usage := LLMUsage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}

	log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d", len(openAIResp.Choices[0].Message.Content), usage.InputTokens, usage.OutputTokens)
	return openAIResp.Choices[0].Message.Content, usage, nil
}
