package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medinsight/medinsight/internal/ai"
	"github.com/medinsight/medinsight/internal/common"
)

const analysisPromptHeader = `You are a medical AI assistant. Analyze this medical report and provide:
1. A concise summary (2-3 sentences)
2. List of abnormal values or findings (bullet points)
3. Recommendations (bullet points)
4. Plain English explanation for a non-medical person (2-3 sentences)

Format your response as JSON:
{
  "summary": "...",
  "abnormalities": ["...", "..."],
  "recommendations": ["...", "..."],
  "plainEnglish": "..."
}

Medical Report:
`

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalyzeReport implements ai.Analyzer. One backend call per request; retry
// policy belongs to the caller. Malformed model output is absorbed into the
// raw-fallback variant, never surfaced as an error.
func (c *Client) AnalyzeReport(ctx context.Context, text string) (ai.AnalysisResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("ai.analyze.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.AnalyzeTemperature,
		"text_len", len(text),
	)

	content, err := c.chatCompletion(ctx, rid, c.cfg.AnalyzeTemperature, []message{
		{Role: "user", Content: analysisPromptHeader + text},
	})
	if err != nil {
		c.logger.Error("ai.analyze.transport_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ai.AnalysisResult{}, common.AnalysisUnavailable(err)
	}

	res := interpretAnalysis(content)
	if res.Kind == ai.KindRawFallback {
		c.logger.Warn("ai.analyze.raw_fallback",
			"req_id", rid, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	} else {
		c.logger.Info("ai.analyze.ok",
			"req_id", rid,
			"abnormalities", len(res.Abnormalities),
			"recommendations", len(res.Recommendations),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	return res, nil
}

// interpretAnalysis applies the two-tier parse: structured JSON when the
// content validates, otherwise keep the model's words whole.
func interpretAnalysis(content string) ai.AnalysisResult {
	if candidate, ok := ai.ExtractJSONCandidate(content); ok {
		if obj, err := ai.ValidateAnalysisJSON(candidate); err == nil {
			return ai.AnalysisResult{
				Analysis: ai.ParseAnalysis(obj),
				Kind:     ai.KindStructured,
				Raw:      content,
			}
		}
	}

	summary := content
	plain := content
	if strings.TrimSpace(content) == "" {
		summary = "No summary generated."
		plain = "Unable to generate explanation."
	}
	return ai.AnalysisResult{
		Analysis: ai.Analysis{
			Summary:         summary,
			PlainEnglish:    plain,
			Abnormalities:   []string{},
			Recommendations: []string{},
		},
		Kind: ai.KindRawFallback,
		Raw:  content,
	}
}

// Chat implements ai.Chatter with the chat system instruction. Shares the
// completion primitive (and its error semantics) with AnalyzeReport.
func (c *Client) Chat(ctx context.Context, userMessage, reportContext string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	userPrompt := "User question: " + userMessage
	if reportContext != "" {
		userPrompt = "Context from user's medical reports:\n" + reportContext +
			"\n\nUser question: " + userMessage
	}

	c.logger.Info("ai.chat.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"message_len", len(userMessage),
		"context_len", len(reportContext),
	)

	content, err := c.chatCompletion(ctx, rid, c.cfg.ChatTemperature, []message{
		{Role: "system", Content: c.cfg.ChatInstruction},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		c.logger.Error("ai.chat.transport_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.AnalysisUnavailable(err)
	}
	if strings.TrimSpace(content) == "" {
		content = "Unable to generate response."
	}

	c.logger.Info("ai.chat.ok",
		"req_id", rid, "reply_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// chatCompletion is the shared transport primitive. Any failure here is a
// transport failure; message content is returned verbatim for the caller
// to interpret.
func (c *Client) chatCompletion(ctx context.Context, rid string, temperature float32, msgs []message) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": temperature,
		"messages":    msgs,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("ai.http.body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("backend status %d: %s", resp.StatusCode, truncate(string(raw), 2<<10))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode backend response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", nil
	}
	return cc.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
