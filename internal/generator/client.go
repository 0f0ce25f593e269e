package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"peakform/coaching-app/internal/config"
	"peakform/coaching-app/internal/domain"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonschema"
)

// WebhookClient talks to the generation webhook over HTTP. In stub mode it
// returns canned documents without any network call, which keeps local
// development and tests free of the external dependency.
type WebhookClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	stubMode   bool
	schemas    map[domain.EntityKind]*jsonschema.Schema
}

// NewWebhookClient creates a generator client from configuration. Document
// schemas are compiled once here; a broken schema is a startup failure, not
// a per-request one.
func NewWebhookClient(cfg config.GeneratorConfig) (*WebhookClient, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &WebhookClient{
		baseURL:    cfg.Endpoint,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		stubMode:   cfg.StubMode,
		schemas:    schemas,
	}, nil
}

// Generate requests content for the bundle and returns a schema-validated
// document. Transport failures, non-200 responses, undecodable bodies and
// schema mismatches all surface as errors; the caller marks the job failed.
func (c *WebhookClient) Generate(ctx context.Context, bundle InputBundle) (domain.GeneratedDocument, error) {
	if _, ok := c.schemas[bundle.Kind]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, bundle.Kind)
	}

	if c.stubMode {
		return c.stubDocument(bundle), nil
	}

	payload, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Generator-Secret", c.secret)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generator returned status %d: %s", resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generator response: %w", err)
	}
	return c.decode(bundle.Kind, raw)
}

// decode validates raw output against the kind's schema and unmarshals it
// into the matching document type.
func (c *WebhookClient) decode(kind domain.EntityKind, raw []byte) (domain.GeneratedDocument, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: undecodable response body: %v", ErrInvalidOutput, err)
	}
	if err := validate(c.schemas[kind], decoded); err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindTrainingPlan:
		var doc domain.TrainingPlanDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		return &doc, nil
	case domain.KindSessionLog:
		var doc domain.SessionSummaryDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		return &doc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}

// stubDocument fabricates a plausible document for local development.
func (c *WebhookClient) stubDocument(bundle InputBundle) domain.GeneratedDocument {
	athleteName := "the athlete"
	if bundle.Athlete != nil {
		athleteName = bundle.Athlete.Name
	}

	switch bundle.Kind {
	case domain.KindSessionLog:
		return &domain.SessionSummaryDocument{
			Headline:   fmt.Sprintf("Solid session for %s", athleteName),
			Summary:    "Completed the planned work with good form. Effort was controlled throughout with no sign of overreaching.",
			Highlights: []string{"Consistent pacing", "Full session completed"},
			CoachNotes: bundle.Notes,
		}
	default:
		weeks := bundle.WeekCount
		if weeks <= 0 {
			weeks = 4
		}
		doc := &domain.TrainingPlanDocument{
			Title:   bundle.Title,
			Summary: fmt.Sprintf("A %d-week progressive block for %s.", weeks, athleteName),
		}
		for i := 1; i <= weeks; i++ {
			doc.Weeks = append(doc.Weeks, domain.PlanWeek{
				Number: i,
				Focus:  bundle.Focus,
				Sessions: []domain.PlanSession{
					{Day: "tuesday", Title: "Interval session", DurationMinutes: 60, Intensity: "hard"},
					{Day: "thursday", Title: "Technique work", DurationMinutes: 45, Intensity: "easy"},
					{Day: "saturday", Title: "Long endurance session", DurationMinutes: 90, Intensity: "moderate"},
				},
			})
		}
		return doc
	}
}
