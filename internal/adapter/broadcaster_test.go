package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaneo-dev/kaneo-sync/models"
	"github.com/kaneo-dev/kaneo-sync/utils"
)

type stubAdapter struct {
	provider string
	handled  []string
	fail     error
	panics   bool
}

func (s *stubAdapter) Provider() string { return s.provider }

func (s *stubAdapter) HandleTaskEvent(ctx context.Context, integration *models.Integration, event *models.TaskEvent) error {
	s.handled = append(s.handled, integration.ID)
	if s.panics {
		panic("adapter blew up")
	}
	return s.fail
}

func (s *stubAdapter) HandleWebhook(ctx context.Context, integration *models.Integration, event string, payload interface{}) error {
	return nil
}

type stubIntegrations struct {
	active []models.Integration
	err    error
}

func (s *stubIntegrations) GetByID(ctx context.Context, id string) (*models.Integration, error) {
	return nil, &models.ResourceNotFoundError{Kind: "integration", ID: id}
}

func (s *stubIntegrations) ActiveForProject(ctx context.Context, projectID string) ([]models.Integration, error) {
	return s.active, s.err
}

func (s *stubIntegrations) ActiveForProjectProvider(ctx context.Context, projectID, provider string) (*models.Integration, error) {
	return nil, &models.ResourceNotFoundError{Kind: "integration", ID: projectID}
}

func (s *stubIntegrations) Save(ctx context.Context, integration *models.Integration) error {
	return nil
}

func taskEvent(eventType string) *models.TaskEvent {
	return &models.TaskEvent{
		Type:      eventType,
		ProjectID: "proj-1",
		Task:      models.Task{ID: "task-1", Status: models.StatusToDo},
	}
}

func TestRegistryRejectsDuplicateProvider(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubAdapter{provider: models.ProviderGithub}))
	assert.Error(t, r.Register(&stubAdapter{provider: models.ProviderGithub}))

	a, ok := r.Get(models.ProviderGithub)
	require.True(t, ok)
	assert.Equal(t, models.ProviderGithub, a.Provider())

	_, ok = r.Get(models.ProviderGitea)
	assert.False(t, ok)
}

func TestDispatchFansOutToActiveIntegrations(t *testing.T) {
	gh := &stubAdapter{provider: models.ProviderGithub}
	gt := &stubAdapter{provider: models.ProviderGitea}
	r := NewRegistry()
	require.NoError(t, r.Register(gh))
	require.NoError(t, r.Register(gt))

	integrations := &stubIntegrations{active: []models.Integration{
		{ID: "int-gh", Provider: models.ProviderGithub},
		{ID: "int-gt", Provider: models.ProviderGitea},
	}}
	b := NewBroadcaster(r, integrations, utils.NewNopLogger())

	err := b.Dispatch(context.Background(), taskEvent(models.EventTaskCreated))
	require.NoError(t, err)
	assert.Equal(t, []string{"int-gh"}, gh.handled)
	assert.Equal(t, []string{"int-gt"}, gt.handled)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	failing := &stubAdapter{provider: models.ProviderGithub, fail: errors.New("api down")}
	healthy := &stubAdapter{provider: models.ProviderGitea}
	r := NewRegistry()
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(healthy))

	integrations := &stubIntegrations{active: []models.Integration{
		{ID: "int-gh", Provider: models.ProviderGithub},
		{ID: "int-gt", Provider: models.ProviderGitea},
	}}
	b := NewBroadcaster(r, integrations, utils.NewNopLogger())

	err := b.Dispatch(context.Background(), taskEvent(models.EventTaskStatusChanged))
	require.NoError(t, err)
	assert.Equal(t, []string{"int-gt"}, healthy.handled, "failure in one adapter must not skip the next integration")
}

func TestDispatchRecoversAdapterPanic(t *testing.T) {
	panicking := &stubAdapter{provider: models.ProviderGithub, panics: true}
	healthy := &stubAdapter{provider: models.ProviderGitea}
	r := NewRegistry()
	require.NoError(t, r.Register(panicking))
	require.NoError(t, r.Register(healthy))

	integrations := &stubIntegrations{active: []models.Integration{
		{ID: "int-gh", Provider: models.ProviderGithub},
		{ID: "int-gt", Provider: models.ProviderGitea},
	}}
	b := NewBroadcaster(r, integrations, utils.NewNopLogger())

	require.NotPanics(t, func() {
		_ = b.Dispatch(context.Background(), taskEvent(models.EventTaskCommentCreated))
	})
	assert.Equal(t, []string{"int-gt"}, healthy.handled)
}

func TestDispatchSkipsUnknownEventAndMissingAdapter(t *testing.T) {
	gh := &stubAdapter{provider: models.ProviderGithub}
	r := NewRegistry()
	require.NoError(t, r.Register(gh))

	integrations := &stubIntegrations{active: []models.Integration{
		{ID: "int-gt", Provider: models.ProviderGitea},
	}}
	b := NewBroadcaster(r, integrations, utils.NewNopLogger())

	require.NoError(t, b.Dispatch(context.Background(), taskEvent("task.reticulated")))
	require.NoError(t, b.Dispatch(context.Background(), taskEvent(models.EventTaskCreated)))
	assert.Empty(t, gh.handled)
}
