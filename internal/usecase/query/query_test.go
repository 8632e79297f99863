package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okushnikov/structured-query/internal/dto"
	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/internal/infrastructure"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

type nopLogger struct{}

func (nopLogger) Debug(message interface{}, args ...interface{}) {}
func (nopLogger) Info(message string, args ...interface{})       {}
func (nopLogger) Warn(message string, args ...interface{})       {}
func (nopLogger) Error(message interface{}, args ...interface{}) {}
func (nopLogger) Fatal(message interface{}, args ...interface{}) {}

type fakeImages struct {
	image *entity.Image
	data  []byte
	err   error

	calls int
}

func (f *fakeImages) ResolveOrStore(ctx context.Context, ownerID uuid.UUID, upload dto.Upload) (*entity.Image, bool, error) {
	panic("not used")
}

func (f *fakeImages) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*entity.Image, error) {
	panic("not used")
}

func (f *fakeImages) GetBytes(ctx context.Context, ownerID, id uuid.UUID) (*entity.Image, []byte, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}

	return f.image, f.data, nil
}

type fakeCacheRepo struct {
	entries map[string]*entity.CacheEntry

	lookups int
	inserts int
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]*entity.CacheEntry)}
}

func (r *fakeCacheRepo) Lookup(ctx context.Context, cacheKey string) (*entity.CacheEntry, error) {
	r.lookups++
	entry, ok := r.entries[cacheKey]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	return entry, nil
}

func (r *fakeCacheRepo) InsertIfAbsent(ctx context.Context, entry *entity.CacheEntry) (bool, error) {
	r.inserts++
	if _, ok := r.entries[entry.CacheKey]; ok {
		return false, nil
	}
	r.entries[entry.CacheKey] = entry

	return true, nil
}

type fakeCostRepo struct {
	events []*entity.CostEvent
}

func (r *fakeCostRepo) Create(ctx context.Context, event *entity.CostEvent) error {
	r.events = append(r.events, event)

	return nil
}

func (r *fakeCostRepo) GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.CostEvent, error) {
	return nil, nil
}
func (r *fakeCostRepo) MarkAsProcessingBatch(ctx context.Context, ids uuid.UUIDs) error    { return nil }
func (r *fakeCostRepo) MarkAsProcessedBatch(ctx context.Context, ids uuid.UUIDs) error     { return nil }
func (r *fakeCostRepo) IncrementRetryCountBatch(ctx context.Context, ids uuid.UUIDs) error { return nil }
func (r *fakeCostRepo) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error   { return nil }
func (r *fakeCostRepo) DeleteOldProcessedAndFailed(ctx context.Context) (int64, error)     { return 0, nil }

type fakeTransactor struct{}

func (fakeTransactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}

type fakeInvoker struct {
	responses [][]byte
	err       error

	calls int
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string, schemaDescriptor []byte, image *infrastructure.ImageInput) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}

	return resp, nil
}

func (f *fakeInvoker) Model() string { return "test-model" }

func textField(name string) entity.FieldDefinition {
	return entity.FieldDefinition{Name: name, Type: entity.FieldText}
}

func numberField(name string) entity.FieldDefinition {
	return entity.FieldDefinition{Name: name, Type: entity.FieldNumber}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	newUC := func(images *fakeImages, cache *fakeCacheRepo, costs *fakeCostRepo, invoker *fakeInvoker) *QueryUseCase {
		return New(images, cache, costs, fakeTransactor{}, invoker, nopLogger{})
	}

	t.Run("miss invokes the model and caches the result", func(t *testing.T) {
		cache := newFakeCacheRepo()
		costs := &fakeCostRepo{}
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{"total": 12.5}`)}}
		uc := newUC(&fakeImages{}, cache, costs, invoker)

		result, cached, err := uc.Execute(ctx, userID, dto.Query{
			Prompt: "total on the receipt",
			Fields: []entity.FieldDefinition{numberField("total")},
		})
		require.NoError(t, err)

		assert.False(t, cached)
		assert.JSONEq(t, `{"total": 12.5}`, string(result))
		assert.Equal(t, 1, invoker.calls)
		assert.Equal(t, 1, cache.inserts)
		require.Len(t, costs.events, 1)

		var payload entity.CostEventPayload
		require.NoError(t, json.Unmarshal(costs.events[0].Payload, &payload))
		assert.Equal(t, userID, payload.UserID)
		assert.True(t, payload.Succeeded)
	})

	t.Run("identical repeat is served from cache without model spend", func(t *testing.T) {
		cache := newFakeCacheRepo()
		costs := &fakeCostRepo{}
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{"total": 12.5}`)}}
		uc := newUC(&fakeImages{}, cache, costs, invoker)

		query := dto.Query{
			Prompt: "total on the receipt",
			Fields: []entity.FieldDefinition{numberField("total")},
		}

		first, cached, err := uc.Execute(ctx, userID, query)
		require.NoError(t, err)
		require.False(t, cached)

		second, cached, err := uc.Execute(ctx, userID, query)
		require.NoError(t, err)

		assert.True(t, cached)
		assert.Equal(t, string(first), string(second))
		assert.Equal(t, 1, invoker.calls)
		assert.Len(t, costs.events, 1)
	})

	t.Run("hit returns the inserted bytes verbatim", func(t *testing.T) {
		cache := newFakeCacheRepo()
		// idiosyncratic spacing and key order must survive the round trip
		raw := []byte("{\"total\":12.50,   \"title\":\"Invoice #7\"}")
		invoker := &fakeInvoker{responses: [][]byte{raw}}
		uc := newUC(&fakeImages{}, cache, &fakeCostRepo{}, invoker)

		query := dto.Query{
			Prompt: "p",
			Fields: []entity.FieldDefinition{textField("title"), numberField("total")},
		}

		first, cached, err := uc.Execute(ctx, userID, query)
		require.NoError(t, err)
		require.False(t, cached)
		require.Equal(t, raw, []byte(first))

		second, cached, err := uc.Execute(ctx, userID, query)
		require.NoError(t, err)

		assert.True(t, cached)
		assert.Equal(t, raw, []byte(second))
	})

	t.Run("cache is shared across users", func(t *testing.T) {
		cache := newFakeCacheRepo()
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{"title": "x"}`)}}
		uc := newUC(&fakeImages{}, cache, &fakeCostRepo{}, invoker)

		query := dto.Query{Prompt: "p", Fields: []entity.FieldDefinition{textField("title")}}

		_, cached, err := uc.Execute(ctx, userID, query)
		require.NoError(t, err)
		require.False(t, cached)

		_, cached, err = uc.Execute(ctx, uuid.New(), query)
		require.NoError(t, err)

		assert.True(t, cached)
		assert.Equal(t, 1, invoker.calls)
	})

	t.Run("prompt difference misses the cache", func(t *testing.T) {
		cache := newFakeCacheRepo()
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{"title": "x"}`)}}
		uc := newUC(&fakeImages{}, cache, &fakeCostRepo{}, invoker)

		_, _, err := uc.Execute(ctx, userID, dto.Query{Prompt: "p", Fields: []entity.FieldDefinition{textField("title")}})
		require.NoError(t, err)

		_, cached, err := uc.Execute(ctx, userID, dto.Query{Prompt: "p ", Fields: []entity.FieldDefinition{textField("title")}})
		require.NoError(t, err)

		assert.False(t, cached)
		assert.Equal(t, 2, invoker.calls)
	})

	t.Run("query with image has a distinct key from the same query without", func(t *testing.T) {
		imageID := uuid.New()
		images := &fakeImages{
			image: &entity.Image{ID: imageID, OwnerID: userID, ContentHash: "abc123", ContentType: "image/png"},
			data:  []byte("bytes"),
		}
		cache := newFakeCacheRepo()
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{"title": "x"}`)}}
		uc := newUC(images, cache, &fakeCostRepo{}, invoker)

		_, _, err := uc.Execute(ctx, userID, dto.Query{Prompt: "p", Fields: []entity.FieldDefinition{textField("title")}})
		require.NoError(t, err)

		_, cached, err := uc.Execute(ctx, userID, dto.Query{
			Prompt:  "p",
			Fields:  []entity.FieldDefinition{textField("title")},
			ImageID: &imageID,
		})
		require.NoError(t, err)

		assert.False(t, cached)
		assert.Equal(t, 2, cache.inserts)
		assert.Len(t, cache.entries, 2)
	})

	t.Run("cross-user hit through each user's own copy of the image", func(t *testing.T) {
		// same bytes uploaded by two users: separate rows, separate ids,
		// one content hash - so the second user's query is a cache hit
		otherUserID := uuid.New()
		firstImageID, otherImageID := uuid.New(), uuid.New()
		contentHash := "deadbeef"
		data := []byte("shared bytes")

		cache := newFakeCacheRepo()
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{"title": "x"}`)}}
		costs := &fakeCostRepo{}

		firstUC := newUC(&fakeImages{
			image: &entity.Image{ID: firstImageID, OwnerID: userID, ContentHash: contentHash, ContentType: "image/png"},
			data:  data,
		}, cache, costs, invoker)
		otherUC := newUC(&fakeImages{
			image: &entity.Image{ID: otherImageID, OwnerID: otherUserID, ContentHash: contentHash, ContentType: "image/png"},
			data:  data,
		}, cache, costs, invoker)

		fields := []entity.FieldDefinition{textField("title")}

		first, cached, err := firstUC.Execute(ctx, userID, dto.Query{Prompt: "p", Fields: fields, ImageID: &firstImageID})
		require.NoError(t, err)
		require.False(t, cached)

		second, cached, err := otherUC.Execute(ctx, otherUserID, dto.Query{Prompt: "p", Fields: fields, ImageID: &otherImageID})
		require.NoError(t, err)

		assert.True(t, cached)
		assert.Equal(t, string(first), string(second))
		assert.Equal(t, 1, invoker.calls)
		assert.Len(t, costs.events, 1)
	})

	t.Run("foreign image aborts before any model call", func(t *testing.T) {
		imageID := uuid.New()
		images := &fakeImages{err: errs.ErrForbidden}
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{"title": "x"}`)}}
		costs := &fakeCostRepo{}
		uc := newUC(images, newFakeCacheRepo(), costs, invoker)

		_, _, err := uc.Execute(ctx, userID, dto.Query{
			Prompt:  "p",
			Fields:  []entity.FieldDefinition{textField("title")},
			ImageID: &imageID,
		})

		assert.ErrorIs(t, err, errs.ErrForbidden)
		assert.Zero(t, invoker.calls)
		assert.Empty(t, costs.events)
	})

	t.Run("upstream failure is not cached", func(t *testing.T) {
		cache := newFakeCacheRepo()
		costs := &fakeCostRepo{}
		invoker := &fakeInvoker{err: errors.New("connection refused")}
		uc := newUC(&fakeImages{}, cache, costs, invoker)

		_, _, err := uc.Execute(ctx, userID, dto.Query{
			Prompt: "p",
			Fields: []entity.FieldDefinition{textField("title")},
		})

		assert.ErrorIs(t, err, errs.ErrUpstream)
		assert.Empty(t, cache.entries)

		// the failed attempt is still billed
		require.Len(t, costs.events, 1)
		var payload entity.CostEventPayload
		require.NoError(t, json.Unmarshal(costs.events[0].Payload, &payload))
		assert.False(t, payload.Succeeded)
	})

	t.Run("schema violation retries once then fails uncached", func(t *testing.T) {
		cache := newFakeCacheRepo()
		costs := &fakeCostRepo{}
		invoker := &fakeInvoker{responses: [][]byte{
			[]byte(`{"total": "not a number"}`),
			[]byte(`{"total": "still not"}`),
		}}
		uc := newUC(&fakeImages{}, cache, costs, invoker)

		_, _, err := uc.Execute(ctx, userID, dto.Query{
			Prompt: "p",
			Fields: []entity.FieldDefinition{numberField("total")},
		})

		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
		assert.Equal(t, 2, invoker.calls)
		assert.Empty(t, cache.entries)
		assert.Len(t, costs.events, 2)
	})

	t.Run("schema violation then valid answer succeeds", func(t *testing.T) {
		cache := newFakeCacheRepo()
		costs := &fakeCostRepo{}
		invoker := &fakeInvoker{responses: [][]byte{
			[]byte(`{"total": "oops"}`),
			[]byte(`{"total": 3}`),
		}}
		uc := newUC(&fakeImages{}, cache, costs, invoker)

		result, cached, err := uc.Execute(ctx, userID, dto.Query{
			Prompt: "p",
			Fields: []entity.FieldDefinition{numberField("total")},
		})
		require.NoError(t, err)

		assert.False(t, cached)
		assert.JSONEq(t, `{"total": 3}`, string(result))
		assert.Equal(t, 2, invoker.calls)
		assert.Len(t, cache.entries, 1)
		// one event for the rejected attempt, one for the accepted one
		assert.Len(t, costs.events, 2)
	})

	t.Run("duplicate field names are rejected before spend", func(t *testing.T) {
		invoker := &fakeInvoker{responses: [][]byte{[]byte(`{}`)}}
		uc := newUC(&fakeImages{}, newFakeCacheRepo(), &fakeCostRepo{}, invoker)

		_, _, err := uc.Execute(ctx, userID, dto.Query{
			Prompt: "p",
			Fields: []entity.FieldDefinition{textField("a"), textField("a")},
		})

		assert.ErrorIs(t, err, errs.ErrEncoding)
		assert.Zero(t, invoker.calls)
	})
}
