// Package vertex produces nutrition analyses with Gemini on Vertex AI.
package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

var _ ports.Enricher = (*Enricher)(nil)

// Config holds configuration for the Gemini model.
type Config struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
	Logger          *slog.Logger
}

// contentGenerator is the part of *genai.GenerativeModel the enricher uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Enricher implements ports.Enricher against Vertex AI.
type Enricher struct {
	client *genai.Client
	model  contentGenerator
	logger *slog.Logger
}

// NewEnricher creates the Vertex client and selects the model.
func NewEnricher(ctx context.Context, cfg Config) (*Enricher, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("vertex project id is required")
	}
	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	e := newEnricher(model, cfg.Logger)
	e.client = client
	return e, nil
}

func newEnricher(model contentGenerator, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{model: model, logger: logger.With("component", "vertex")}
}

// Close releases the underlying client.
func (e *Enricher) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// Analyze asks the model for a short consumer-facing analysis of the payload.
func (e *Enricher) Analyze(ctx context.Context, payload product.NutritionPayload) (string, error) {
	prompt, err := buildPrompt(payload)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEnrichmentUnavailable, "Nutrition analysis unavailable")
	}

	resp, err := e.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		e.logger.WarnContext(ctx, "vertex generate failed", "error", err)
		return "", apperrors.Wrap(err, apperrors.ErrCodeEnrichmentUnavailable, "Nutrition analysis unavailable")
	}

	text, err := responseText(resp)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEnrichmentUnavailable, "Nutrition analysis unavailable")
	}
	analysis := parseAnalysis(text)
	if analysis == "" {
		return "", &apperrors.AppError{Code: apperrors.ErrCodeEnrichmentUnavailable, Message: "Nutrition analysis was empty"}
	}
	return analysis, nil
}

const promptTemplate = `You are a nutrition expert. Using the per-100g nutrition facts below, write a
short analysis (at most four sentences) for a shopper: overall healthiness,
the nutrients that stand out, and one practical tip.

Respond with a JSON object of the form {"analysis": "string"}.

Food: %s
Nutrition facts (per 100g): %s`

func buildPrompt(p product.NutritionPayload) (string, error) {
	facts, err := json.Marshal(p.FoodNutrition)
	if err != nil {
		return "", fmt.Errorf("encode nutrition facts: %w", err)
	}
	name := strings.TrimSpace(p.FoodName)
	if name == "" {
		name = "Unknown product"
	}
	return fmt.Sprintf(promptTemplate, name, facts), nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no response generated")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// parseAnalysis accepts {"analysis": ...} optionally wrapped in a ```json
// fence, and falls back to the raw text when the model ignored the format.
func parseAnalysis(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out struct {
		Analysis string `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return strings.TrimSpace(out.Analysis)
	}
	return text
}
