package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/mocks"
	"github.com/nutrinom/nutrinom-go/internal/mocks/fakes"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
)

func TestLookupService_CachesSuccessfulLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockProductLookup(ctrl)
	cache := fakes.NewMemoryLookupCache()
	rec := &statsd.Recorder{}
	svc := NewLookupService(LookupServiceOptions{
		Source: source,
		Cache:  cache,
		Deps:   LookupServiceDeps{TTL: time.Hour, Metrics: rec},
	})

	source.EXPECT().LookupProduct(gomock.Any(), validCode).Return(mustDoc(t, validDoc), nil).Times(1)

	first, err := svc.Lookup(context.Background(), " "+validCode+" ")
	require.NoError(t, err)
	second, err := svc.Lookup(context.Background(), validCode)
	require.NoError(t, err)

	assert.Equal(t, first.Product.Name, second.Product.Name)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, int64(1), rec.Total("op.count", map[string]string{"operation": "lookup_cache", "result": "hit"}))
	assert.Equal(t, int64(1), rec.Total("op.count", map[string]string{"operation": "lookup_cache", "result": "miss"}))
}

func TestLookupService_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockProductLookup(ctrl)
	cache := fakes.NewMemoryLookupCache()
	svc := NewLookupService(LookupServiceOptions{Source: source, Cache: cache, Deps: LookupServiceDeps{TTL: time.Hour}})

	gomock.InOrder(
		source.EXPECT().LookupProduct(gomock.Any(), validCode).Return(nil, apperrors.NotFound("Product not found")),
		source.EXPECT().LookupProduct(gomock.Any(), validCode).Return(mustDoc(t, validDoc), nil),
	)

	_, err := svc.Lookup(context.Background(), validCode)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Zero(t, cache.Len())

	doc, err := svc.Lookup(context.Background(), validCode)
	require.NoError(t, err)
	assert.Equal(t, "Oat Bar", doc.Product.Name)
}

func TestLookupService_DeduplicatesConcurrentLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockProductLookup(ctrl)
	svc := NewLookupService(LookupServiceOptions{Source: source})

	release := make(chan struct{})
	source.EXPECT().
		LookupProduct(gomock.Any(), validCode).
		DoAndReturn(func(context.Context, string) (*product.Document, error) {
			<-release
			return mustDoc(t, validDoc), nil
		}).
		Times(1)

	const callers = 5
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	results := make([]*product.Document, callers)
	started.Add(callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			doc, err := svc.Lookup(context.Background(), validCode)
			assert.NoError(t, err)
			results[i] = doc
		}()
	}
	started.Wait()
	// Let every caller reach the shared call before it returns.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, doc := range results {
		require.NotNil(t, doc)
		assert.Equal(t, "Oat Bar", doc.Product.Name)
	}
}

func TestLookupService_RejectsInvalidCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewLookupService(LookupServiceOptions{Source: mocks.NewMockProductLookup(ctrl)})

	_, err := svc.Lookup(context.Background(), "  ")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "code", apperrors.GetField(err))
}

func TestLookupService_DiscardsUnreadableCacheEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockProductLookup(ctrl)
	cache := fakes.NewMemoryLookupCache()
	require.NoError(t, cache.Set(context.Background(), validCode, []byte("{broken"), time.Hour))
	svc := NewLookupService(LookupServiceOptions{Source: source, Cache: cache, Deps: LookupServiceDeps{TTL: time.Hour}})

	source.EXPECT().LookupProduct(gomock.Any(), validCode).Return(mustDoc(t, validDoc), nil)

	doc, err := svc.Lookup(context.Background(), validCode)
	require.NoError(t, err)
	assert.Equal(t, "Oat Bar", doc.Product.Name)

	raw, ok, err := cache.Get(context.Background(), validCode)
	require.NoError(t, err)
	require.True(t, ok)
	cached, err := product.ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "Oat Bar", cached.Product.Name)
}

type failingCache struct{ *fakes.MemoryLookupCache }

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func TestLookupService_CacheFailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockProductLookup(ctrl)
	svc := NewLookupService(LookupServiceOptions{
		Source: source,
		Cache:  failingCache{fakes.NewMemoryLookupCache()},
		Deps:   LookupServiceDeps{TTL: time.Hour},
	})
	source.EXPECT().LookupProduct(gomock.Any(), validCode).Return(mustDoc(t, validDoc), nil)

	_, err := svc.Lookup(context.Background(), validCode)
	require.NoError(t, err)
}

func TestLookupService_Invalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := fakes.NewMemoryLookupCache()
	require.NoError(t, cache.Set(context.Background(), validCode, []byte(validDoc), time.Hour))
	svc := NewLookupService(LookupServiceOptions{Source: mocks.NewMockProductLookup(ctrl), Cache: cache, Deps: LookupServiceDeps{TTL: time.Hour}})

	require.NoError(t, svc.Invalidate(context.Background(), " "+validCode))
	assert.Zero(t, cache.Len())
}
