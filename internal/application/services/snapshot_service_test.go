package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/domain/providers"
	"github.com/cibounipi/mensabot/internal/store"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentSource) Name() string {
	return "mock"
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return m.Called(ctx, key, value, expirationSeconds).Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.DataRefreshEvent) error {
	return m.Called(ctx, channel, event).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DataRefreshEvent, error) {
	args := m.Called(ctx, channel)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan *entities.DataRefreshEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

func expectDocuments(src *MockDocumentSource, docs store.Documents) {
	for _, name := range []string{store.DocMenu, store.DocFacilities, store.DocRates, store.DocCombinations} {
		if data := docs.Get(name); len(data) > 0 {
			src.On("Fetch", mock.Anything, name).Return(data, nil).Once()
		} else {
			src.On("Fetch", mock.Anything, name).Return(nil, apperrors.NewNotFoundError(name)).Once()
		}
	}
}

func TestSnapshotService_Reload(t *testing.T) {
	src := new(MockDocumentSource)
	docs := fixtureDocuments()
	docs.Combinations = nil
	expectDocuments(src, docs)

	holder := store.NewHolder(nil)
	svc := services.NewSnapshotService(src, holder, services.SnapshotServiceConfig{Location: time.UTC})

	snap, err := svc.Reload(context.Background(), services.TriggerStartup)
	require.NoError(t, err)
	assert.Same(t, snap, holder.Load())
	assert.Equal(t, 2, snap.Facilities.Len())
	assert.Empty(t, snap.Combinations)
	src.AssertExpectations(t)
}

func TestSnapshotService_FailedReloadKeepsServing(t *testing.T) {
	initial, err := store.Build(fixtureDocuments(), time.UTC)
	require.NoError(t, err)
	holder := store.NewHolder(initial)

	src := new(MockDocumentSource)
	src.On("Fetch", mock.Anything, store.DocMenu).Return([]byte(`{}`), nil).Once()
	src.On("Fetch", mock.Anything, store.DocFacilities).Return(nil, errors.New("disk on fire")).Once()

	svc := services.NewSnapshotService(src, holder, services.SnapshotServiceConfig{Location: time.UTC})

	_, err = svc.Reload(context.Background(), services.TriggerManual)
	require.Error(t, err)
	assert.Same(t, initial, holder.Load())
}

func TestSnapshotService_MalformedDocumentKeepsServing(t *testing.T) {
	initial, err := store.Build(fixtureDocuments(), time.UTC)
	require.NoError(t, err)
	holder := store.NewHolder(initial)

	docs := fixtureDocuments()
	docs.Rates = []byte(`[{"min_isee": 10, "max_isee": null}]`)
	src := new(MockDocumentSource)
	expectDocuments(src, docs)

	svc := services.NewSnapshotService(src, holder, services.SnapshotServiceConfig{Location: time.UTC})

	_, err = svc.Reload(context.Background(), services.TriggerManual)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Same(t, initial, holder.Load())
}

func TestSnapshotService_SwapPurgesOldRenders(t *testing.T) {
	initial, err := store.Build(fixtureDocuments(), time.UTC)
	require.NoError(t, err)
	holder := store.NewHolder(initial)

	docs := fixtureDocuments()
	docs.Menu = []byte(`{"2025-03-10": {"Pranzo": {"Primi": ["Gnocchi"]}}}`)
	src := new(MockDocumentSource)
	expectDocuments(src, docs)

	cache := new(MockCacheProvider)
	cache.On("DeletePattern", mock.Anything, "render:"+initial.Version+":*").Return(nil).Once()

	svc := services.NewSnapshotService(src, holder, services.SnapshotServiceConfig{Location: time.UTC, Cache: cache})

	next, err := svc.Reload(context.Background(), services.TriggerManual)
	require.NoError(t, err)
	assert.NotEqual(t, initial.Version, next.Version)
	assert.Same(t, next, holder.Load())
	cache.AssertExpectations(t)
}

func TestSnapshotService_UnchangedDataIsNotSwapped(t *testing.T) {
	initial, err := store.Build(fixtureDocuments(), time.UTC)
	require.NoError(t, err)
	holder := store.NewHolder(initial)

	src := new(MockDocumentSource)
	expectDocuments(src, fixtureDocuments())
	cache := new(MockCacheProvider)

	svc := services.NewSnapshotService(src, holder, services.SnapshotServiceConfig{Location: time.UTC, Cache: cache})

	got, err := svc.Reload(context.Background(), services.TriggerInterval)
	require.NoError(t, err)
	assert.Same(t, initial, got)
	assert.Same(t, initial, holder.Load())
	cache.AssertNotCalled(t, "DeletePattern", mock.Anything, mock.Anything)
}

func TestSnapshotService_ReloadsOnRefreshEvent(t *testing.T) {
	initial, err := store.Build(fixtureDocuments(), time.UTC)
	require.NoError(t, err)
	holder := store.NewHolder(initial)

	docs := fixtureDocuments()
	docs.Menu = []byte(`{"2025-03-11": {"Cena": {"Primi": ["Vellutata"]}}}`)
	src := new(MockDocumentSource)
	expectDocuments(src, docs)

	events := make(chan *entities.DataRefreshEvent, 1)
	bus := new(MockEventBus)
	bus.On("Subscribe", mock.Anything, providers.EventChannelDataRefreshed).
		Return((<-chan *entities.DataRefreshEvent)(events), nil).Once()

	svc := services.NewSnapshotService(src, holder, services.SnapshotServiceConfig{Location: time.UTC, EventBus: bus})
	require.NoError(t, svc.Start())
	defer svc.Stop()

	events <- entities.NewDataRefreshEvent("test", store.DocMenu)

	assert.Eventually(t, func() bool {
		return holder.Load() != initial
	}, time.Second, 10*time.Millisecond)

	_, ok := holder.Load().Menus.Day(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	bus.AssertExpectations(t)
}

func TestSnapshotService_StartFailsWhenSubscribeFails(t *testing.T) {
	bus := new(MockEventBus)
	bus.On("Subscribe", mock.Anything, "custom").Return(nil, errors.New("redis down"))

	svc := services.NewSnapshotService(new(MockDocumentSource), store.NewHolder(nil), services.SnapshotServiceConfig{
		EventBus: bus,
		Channel:  "custom",
	})

	assert.Error(t, svc.Start())
}
