package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

const defaultChatSystemInstruction = "You are a helpful medical AI assistant. " +
	"Answer questions about medical reports in a clear, empathetic, and non-alarming way. " +
	"Always remind users to consult with healthcare professionals for medical advice."

// Config for the OpenAI-compatible client. Everything the prompts and
// transport depend on is injected here; nothing is read from globals at
// call time.
type Config struct {
	APIKey             string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL            string        // default https://api.openai.com/v1
	Model              string        // e.g. "gpt-4o-mini"
	AnalyzeTemperature float32       // low; the analysis should be stable
	ChatTemperature    float32       // higher; conversation may ramble a bit
	Timeout            time.Duration // http client timeout
	ChatInstruction    string        // system instruction for the chat path
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.AnalyzeTemperature <= 0 {
		cfg.AnalyzeTemperature = 0.3
	}
	if cfg.ChatTemperature <= 0 {
		cfg.ChatTemperature = 0.7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.ChatInstruction == "" {
		cfg.ChatInstruction = defaultChatSystemInstruction
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}
