package backend

import (
	"context"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

const geminiName = "gemini"

// systemInstruction frames every call; the per-operation contract is
// appended to the prompt itself.
const systemInstruction = "You are an entity reconciliation service. " +
	"You match free-text names to well-known entities and describe them. " +
	"Always answer with JSON only, without commentary."

// GeminiConfig configures the Gemini backend. APIKey selects the Gemini API;
// Project (with Location) selects Vertex AI using Application Default
// Credentials.
type GeminiConfig struct {
	APIKey          string
	Project         string
	Location        string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// GeminiConfigFromEnv fills unset fields from the environment.
func GeminiConfigFromEnv(cfg GeminiConfig) GeminiConfig {
	if cfg.APIKey == "" {
		cfg.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if cfg.Project == "" {
		cfg.Project = firstEnv("GOOGLE_CLOUD_PROJECT", "GOOGLE_VERTEX_PROJECT")
	}
	if cfg.Location == "" {
		cfg.Location = firstEnv("GOOGLE_CLOUD_LOCATION", "GOOGLE_VERTEX_LOCATION")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("RECONCILER_MODEL")
	}
	return cfg
}

// Gemini generates answers with Google's Gemini models through the genai SDK.
type Gemini struct {
	client *genai.Client
	config GeminiConfig
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = constants.DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = constants.DefaultTemperature
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = constants.DefaultMaxOutputTokens
	}

	var clientConfig *genai.ClientConfig
	switch {
	case cfg.APIKey != "":
		clientConfig = &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  cfg.APIKey,
		}
	case cfg.Project != "":
		if cfg.Location == "" {
			cfg.Location = "us-central1"
		}
		creds, err := detectCredentials(ctx)
		if err != nil {
			return nil, err
		}
		clientConfig = &genai.ClientConfig{
			Backend:     genai.BackendVertexAI,
			Project:     cfg.Project,
			Location:    cfg.Location,
			Credentials: creds,
		}
	default:
		return nil, &errors.ConfigError{
			Component: geminiName,
			Message:   "no credentials configured - set GEMINI_API_KEY for the Gemini API or GOOGLE_CLOUD_PROJECT for Vertex AI",
			Err:       errors.ErrAPIKeyRequired,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.NewConfigError(geminiName, "cannot create genai client", err)
	}
	return &Gemini{client: client, config: cfg}, nil
}

// detectCredentials looks up Application Default Credentials. DetectDefault
// takes no context, so it runs in a goroutine bounded by a short timeout.
func detectCredentials(ctx context.Context) (*auth.Credentials, error) {
	type result struct {
		creds *auth.Credentials
		err   error
	}

	resultChan := make(chan result, 1)
	go func() {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes: []string{
				"https://www.googleapis.com/auth/cloud-platform",
				"https://www.googleapis.com/auth/generative-language",
			},
		})
		resultChan <- result{creds: creds, err: err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return nil, &errors.ConfigError{
				Component: geminiName,
				Message:   "no valid credentials found - configure Application Default Credentials",
				Err:       res.err,
			}
		}
		return res.creds, nil
	case <-time.After(2 * time.Second):
		return nil, &errors.ConfigError{
			Component: geminiName,
			Message:   "credential detection timed out",
		}
	case <-ctx.Done():
		return nil, &errors.ConfigError{
			Component: geminiName,
			Message:   "credential detection canceled",
			Err:       ctx.Err(),
		}
	}
}

// Name returns the backend name.
func (g *Gemini) Name() string { return geminiName }

// Model returns the configured model id.
func (g *Gemini) Model() string { return g.config.Model }

// Generate asks the model for a JSON answer constrained by d.
func (g *Gemini) Generate(ctx context.Context, prompt string, d schema.Descriptor) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Temperature:       genai.Ptr(g.config.Temperature),
		MaxOutputTokens:   g.config.MaxOutputTokens,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    d.GenAISchema(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), config)
	if err != nil {
		return "", classify(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		reason := "empty response"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return "", errors.NewBackendError(geminiName, errors.BackendUpstream, reason, nil)
	}
	return text, nil
}

// classify converts SDK and transport errors into *errors.BackendError.
func classify(err error) error {
	var backendErr *errors.BackendError
	if errors.As(err, &backendErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.NewBackendError(geminiName, errors.BackendTimeout, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return errors.NewBackendError(geminiName, errors.BackendTimeout, "request canceled", err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiError(*apiErrPtr, err)
	}

	return errors.NewBackendError(geminiName, errors.BackendUpstream, err.Error(), err)
}

func apiError(apiErr genai.APIError, err error) error {
	kind := errors.BackendKindFromStatus(apiErr.Code)
	if apiErr.Status == "RESOURCE_EXHAUSTED" {
		kind = errors.BackendQuotaExceeded
	}
	return &errors.BackendError{
		Provider:   geminiName,
		Kind:       kind,
		StatusCode: apiErr.Code,
		Message:    apiErr.Message,
		Err:        err,
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
