package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaneo-dev/kaneo-sync/internal/adapter"
	"github.com/kaneo-dev/kaneo-sync/internal/adapter/gitea"
	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

type stubIntegrations struct {
	integration *models.Integration
}

func (s *stubIntegrations) GetByID(ctx context.Context, id string) (*models.Integration, error) {
	if s.integration != nil && s.integration.ID == id {
		return s.integration, nil
	}
	return nil, &models.ResourceNotFoundError{Kind: "integration", ID: id}
}

func (s *stubIntegrations) ActiveForProject(ctx context.Context, projectID string) ([]models.Integration, error) {
	return nil, nil
}

func (s *stubIntegrations) ActiveForProjectProvider(ctx context.Context, projectID, provider string) (*models.Integration, error) {
	return nil, &models.ResourceNotFoundError{Kind: "integration", ID: projectID}
}

func (s *stubIntegrations) Save(ctx context.Context, integration *models.Integration) error {
	return nil
}

type stubDeliveries struct {
	rows []*models.WebhookDelivery
}

func (s *stubDeliveries) Record(ctx context.Context, delivery *models.WebhookDelivery) error {
	s.rows = append(s.rows, delivery)
	return nil
}

type recordingAdapter struct {
	provider string
	events   []string
	payloads []interface{}
}

func (r *recordingAdapter) Provider() string { return r.provider }

func (r *recordingAdapter) HandleTaskEvent(ctx context.Context, integration *models.Integration, event *models.TaskEvent) error {
	return nil
}

func (r *recordingAdapter) HandleWebhook(ctx context.Context, integration *models.Integration, event string, payload interface{}) error {
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

func newWebhookRouter(t *testing.T, integration *models.Integration, a adapter.Adapter, deliveries *stubDeliveries) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := adapter.NewRegistry()
	require.NoError(t, registry.Register(a))

	wc := NewWebhookController(registry, &stubIntegrations{integration: integration}, deliveries, utils.NewNopLogger())
	router := gin.New()
	router.POST("/webhooks/github/:integrationId", wc.GithubWebhookHandler())
	router.POST("/webhooks/gitea/:integrationId", wc.GiteaWebhookHandler())
	return router
}

func giteaIntegration() *models.Integration {
	return &models.Integration{
		ID: "int-gt", ProjectID: "proj-1", Provider: models.ProviderGitea,
		RepositoryOwner: "acme", RepositoryName: "widgets",
		BaseURL: "https://git.acme.dev", WebhookSecret: "s3cret", IsActive: true,
	}
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestGiteaWebhookProcessed(t *testing.T) {
	a := &recordingAdapter{provider: models.ProviderGitea}
	deliveries := &stubDeliveries{}
	router := newWebhookRouter(t, giteaIntegration(), a, deliveries)

	body := []byte(`{"action": "opened", "issue": {"number": 4, "title": "It broke"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitea/int-gt", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(gitea.EventHeader, gitea.EventIssues)
	req.Header.Set(gitea.DeliveryHeader, "delivery-1")
	req.Header.Set(gitea.SignatureHeader, signBody("s3cret", body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, a.events, 1)
	assert.Equal(t, gitea.EventIssues, a.events[0])
	payload, ok := a.payloads[0].(gitea.IssuePayload)
	require.True(t, ok)
	assert.Equal(t, int64(4), payload.Issue.Number)

	require.Len(t, deliveries.rows, 1)
	assert.Equal(t, models.DeliveryProcessed, deliveries.rows[0].Status)
	assert.Equal(t, "delivery-1", deliveries.rows[0].DeliveryID)
}

func TestGiteaWebhookBadSignature(t *testing.T) {
	a := &recordingAdapter{provider: models.ProviderGitea}
	deliveries := &stubDeliveries{}
	router := newWebhookRouter(t, giteaIntegration(), a, deliveries)

	body := []byte(`{"action": "opened"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitea/int-gt", bytes.NewReader(body))
	req.Header.Set(gitea.EventHeader, gitea.EventIssues)
	req.Header.Set(gitea.SignatureHeader, signBody("not-the-secret", body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, a.events, "unverified delivery must never reach the adapter")
	require.Len(t, deliveries.rows, 1)
	assert.Equal(t, models.DeliveryRejected, deliveries.rows[0].Status)
}

func TestGiteaWebhookUnhandledEventAcknowledged(t *testing.T) {
	a := &recordingAdapter{provider: models.ProviderGitea}
	deliveries := &stubDeliveries{}
	router := newWebhookRouter(t, giteaIntegration(), a, deliveries)

	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitea/int-gt", bytes.NewReader(body))
	req.Header.Set(gitea.EventHeader, "fork")
	req.Header.Set(gitea.SignatureHeader, signBody("s3cret", body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, a.events)
}

func TestWebhookUnknownIntegration(t *testing.T) {
	a := &recordingAdapter{provider: models.ProviderGitea}
	router := newWebhookRouter(t, giteaIntegration(), a, &stubDeliveries{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitea/no-such-id", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookInactiveIntegrationHidden(t *testing.T) {
	integration := giteaIntegration()
	integration.IsActive = false
	a := &recordingAdapter{provider: models.ProviderGitea}
	router := newWebhookRouter(t, integration, a, &stubDeliveries{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitea/int-gt", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookProviderMismatch(t *testing.T) {
	// A gitea integration id posted to the github endpoint is a 404, not a
	// parse attempt with the wrong verifier.
	a := &recordingAdapter{provider: models.ProviderGitea}
	router := newWebhookRouter(t, giteaIntegration(), a, &stubDeliveries{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github/int-gt", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGithubWebhookEmptySecretRejected(t *testing.T) {
	// With no secret configured the parser would accept unsigned deliveries,
	// so the handler must reject before parsing.
	integration := &models.Integration{
		ID: "int-gh", ProjectID: "proj-1", Provider: models.ProviderGithub,
		WebhookSecret: "", IsActive: true,
	}
	a := &recordingAdapter{provider: models.ProviderGithub}
	deliveries := &stubDeliveries{}
	router := newWebhookRouter(t, integration, a, deliveries)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github/int-gh",
		bytes.NewReader([]byte(`{"action":"opened","issue":{"number":4}}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "issues")
	req.Header.Set("X-GitHub-Delivery", "delivery-gh-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, a.events, "unsigned delivery must never reach the adapter")
	require.Len(t, deliveries.rows, 1)
	assert.Equal(t, models.DeliveryRejected, deliveries.rows[0].Status)
	assert.Equal(t, "delivery-gh-1", deliveries.rows[0].DeliveryID)
}

func TestGithubWebhookMissingSignature(t *testing.T) {
	integration := &models.Integration{
		ID: "int-gh", ProjectID: "proj-1", Provider: models.ProviderGithub,
		WebhookSecret: "s3cret", IsActive: true,
	}
	a := &recordingAdapter{provider: models.ProviderGithub}
	deliveries := &stubDeliveries{}
	router := newWebhookRouter(t, integration, a, deliveries)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github/int-gh", bytes.NewReader([]byte(`{"action":"opened"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "issues")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, a.events)
	require.Len(t, deliveries.rows, 1)
	assert.Equal(t, models.DeliveryRejected, deliveries.rows[0].Status)
}
