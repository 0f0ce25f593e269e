package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peakform/coaching-app/internal/config"
	"peakform/coaching-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubClient(t *testing.T) *WebhookClient {
	t.Helper()
	c, err := NewWebhookClient(config.GeneratorConfig{StubMode: true, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func webhookClient(t *testing.T, endpoint string) *WebhookClient {
	t.Helper()
	c, err := NewWebhookClient(config.GeneratorConfig{
		Endpoint: endpoint,
		Secret:   "test-secret",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestStubModeProducesValidPlanDocument(t *testing.T) {
	c := stubClient(t)

	doc, err := c.Generate(context.Background(), InputBundle{
		Kind:      domain.KindTrainingPlan,
		Title:     "Base block",
		Focus:     "endurance",
		WeekCount: 3,
		Athlete:   &domain.Athlete{Name: "Runner"},
	})
	require.NoError(t, err)

	plan, ok := doc.(*domain.TrainingPlanDocument)
	require.True(t, ok)
	assert.Equal(t, "Base block", plan.Title)
	assert.Len(t, plan.Weeks, 3)

	// The stub's own output must satisfy the schema it enforces on the real
	// webhook.
	raw, err := json.Marshal(plan)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NoError(t, validate(c.schemas[domain.KindTrainingPlan], decoded))
}

func TestStubModeProducesValidSummaryDocument(t *testing.T) {
	c := stubClient(t)

	doc, err := c.Generate(context.Background(), InputBundle{
		Kind:  domain.KindSessionLog,
		Notes: "intervals went well",
	})
	require.NoError(t, err)

	summary, ok := doc.(*domain.SessionSummaryDocument)
	require.True(t, ok)
	assert.NotEmpty(t, summary.Headline)
	assert.Equal(t, "intervals went well", summary.CoachNotes)
}

func TestGenerateRejectsUnsupportedKind(t *testing.T) {
	c := stubClient(t)

	_, err := c.Generate(context.Background(), InputBundle{Kind: domain.KindCoach})
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestGenerateSendsAuthenticatedRequest(t *testing.T) {
	var gotSecret, gotRequestID string
	var gotBundle InputBundle
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("X-Generator-Secret")
		gotRequestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBundle))
		json.NewEncoder(w).Encode(domain.TrainingPlanDocument{
			Title:   "Generated plan",
			Summary: "ok",
			Weeks: []domain.PlanWeek{
				{Number: 1, Sessions: []domain.PlanSession{{Day: "monday", Title: "Easy run"}}},
			},
		})
	}))
	defer server.Close()

	c := webhookClient(t, server.URL)
	doc, err := c.Generate(context.Background(), InputBundle{
		Kind:  domain.KindTrainingPlan,
		Title: "Base block",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-secret", gotSecret)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, domain.KindTrainingPlan, gotBundle.Kind)

	plan, ok := doc.(*domain.TrainingPlanDocument)
	require.True(t, ok)
	assert.Equal(t, "Generated plan", plan.Title)
}

func TestGenerateRejectsSchemaViolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Missing the required weeks array.
		w.Write([]byte(`{"title": "Broken plan", "summary": "no weeks"}`))
	}))
	defer server.Close()

	c := webhookClient(t, server.URL)
	_, err := c.Generate(context.Background(), InputBundle{
		Kind:  domain.KindTrainingPlan,
		Title: "Base block",
	})
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestGenerateRejectsUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	c := webhookClient(t, server.URL)
	_, err := c.Generate(context.Background(), InputBundle{Kind: domain.KindSessionLog, Notes: "x"})
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestGenerateSurfacesUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := webhookClient(t, server.URL)
	_, err := c.Generate(context.Background(), InputBundle{Kind: domain.KindSessionLog, Notes: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
