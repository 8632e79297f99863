package image

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okushnikov/structured-query/internal/dto"
	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/hasher"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

type nopLogger struct{}

func (nopLogger) Debug(message interface{}, args ...interface{}) {}
func (nopLogger) Info(message string, args ...interface{})       {}
func (nopLogger) Warn(message string, args ...interface{})       {}
func (nopLogger) Error(message interface{}, args ...interface{}) {}
func (nopLogger) Fatal(message interface{}, args ...interface{}) {}

type fakeBlobRepo struct {
	objects map[string][]byte

	uploads int
	deletes int
}

func newFakeBlobRepo() *fakeBlobRepo {
	return &fakeBlobRepo{objects: make(map[string][]byte)}
}

func (r *fakeBlobRepo) Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	return r.UploadBytes(ctx, key, b, contentType, size)
}

func (r *fakeBlobRepo) UploadBytes(ctx context.Context, key string, data []byte, contentType string, size int64) error {
	r.uploads++
	r.objects[key] = data

	return nil
}

func (r *fakeBlobRepo) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errs.ErrRecordNotFound
}

func (r *fakeBlobRepo) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	data, ok := r.objects[key]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	return data, nil
}

func (r *fakeBlobRepo) Delete(ctx context.Context, key string) error {
	r.deletes++
	delete(r.objects, key)

	return nil
}

type fakeImageRepo struct {
	rows map[uuid.UUID]*entity.Image

	// next Create calls failing with ErrAlreadyExists
	conflicts int
	// row the conflicting writer lost to, installed on first conflict
	winner *entity.Image
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{rows: make(map[uuid.UUID]*entity.Image)}
}

func (r *fakeImageRepo) Create(ctx context.Context, image *entity.Image) error {
	if r.conflicts > 0 {
		r.conflicts--
		if r.winner != nil {
			r.rows[r.winner.ID] = r.winner
		}

		return errs.ErrAlreadyExists
	}

	for _, row := range r.rows {
		if row.OwnerID == image.OwnerID && row.ContentHash == image.ContentHash {
			return errs.ErrAlreadyExists
		}
	}
	r.rows[image.ID] = image

	return nil
}

func (r *fakeImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	return row, nil
}

func (r *fakeImageRepo) GetByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, contentHash string) (*entity.Image, error) {
	for _, row := range r.rows {
		if row.OwnerID == ownerID && row.ContentHash == contentHash {
			return row, nil
		}
	}

	return nil, errs.ErrRecordNotFound
}

type fakeProber struct {
	err error
}

func (p fakeProber) Probe(data []byte) (int, int, error) {
	if p.err != nil {
		return 0, 0, p.err
	}

	return 640, 480, nil
}

func TestResolveOrStore(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	upload := dto.Upload{Data: []byte("image bytes"), ContentType: "image/png"}

	t.Run("first upload stores a new row", func(t *testing.T) {
		blobs := newFakeBlobRepo()
		images := newFakeImageRepo()
		uc := New(blobs, images, fakeProber{}, nopLogger{})

		image, isNew, err := uc.ResolveOrStore(ctx, owner, upload)
		require.NoError(t, err)

		assert.True(t, isNew)
		assert.Equal(t, owner, image.OwnerID)
		assert.Equal(t, hasher.HashBytes(upload.Data), image.ContentHash)
		assert.Equal(t, int64(len(upload.Data)), image.Size)
		assert.Equal(t, 640, image.Width)
		assert.Equal(t, 480, image.Height)
		assert.Equal(t, 1, blobs.uploads)
	})

	t.Run("re-upload returns the existing row without writing", func(t *testing.T) {
		blobs := newFakeBlobRepo()
		images := newFakeImageRepo()
		uc := New(blobs, images, fakeProber{}, nopLogger{})

		first, isNew, err := uc.ResolveOrStore(ctx, owner, upload)
		require.NoError(t, err)
		require.True(t, isNew)

		second, isNew, err := uc.ResolveOrStore(ctx, owner, upload)
		require.NoError(t, err)

		assert.False(t, isNew)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, blobs.uploads)
	})

	t.Run("same bytes from another owner stored separately", func(t *testing.T) {
		blobs := newFakeBlobRepo()
		images := newFakeImageRepo()
		uc := New(blobs, images, fakeProber{}, nopLogger{})

		first, _, err := uc.ResolveOrStore(ctx, owner, upload)
		require.NoError(t, err)

		other, isNew, err := uc.ResolveOrStore(ctx, uuid.New(), upload)
		require.NoError(t, err)

		assert.True(t, isNew)
		assert.NotEqual(t, first.ID, other.ID)
		assert.Equal(t, first.ContentHash, other.ContentHash)
	})

	t.Run("insert race loser re-reads the winner row", func(t *testing.T) {
		blobs := newFakeBlobRepo()
		images := newFakeImageRepo()
		uc := New(blobs, images, fakeProber{}, nopLogger{})

		winner := &entity.Image{
			ID:          uuid.New(),
			OwnerID:     owner,
			ObjectKey:   "images/winner",
			ContentHash: hasher.HashBytes(upload.Data),
		}
		images.conflicts = 1
		images.winner = winner

		image, isNew, err := uc.ResolveOrStore(ctx, owner, upload)
		require.NoError(t, err)

		assert.False(t, isNew)
		assert.Equal(t, winner.ID, image.ID)
		// the loser's orphan blob is removed
		assert.Equal(t, 1, blobs.deletes)
	})

	t.Run("undecodable bytes are rejected", func(t *testing.T) {
		blobs := newFakeBlobRepo()
		images := newFakeImageRepo()
		probeErr := fmt.Errorf("probe: %w", errs.ErrEncoding)
		uc := New(blobs, images, fakeProber{err: probeErr}, nopLogger{})

		_, _, err := uc.ResolveOrStore(ctx, owner, upload)

		assert.ErrorIs(t, err, errs.ErrEncoding)
		assert.Zero(t, blobs.uploads)
	})
}

func TestGetForOwner(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	blobs := newFakeBlobRepo()
	images := newFakeImageRepo()
	uc := New(blobs, images, fakeProber{}, nopLogger{})

	stored, _, err := uc.ResolveOrStore(ctx, owner, dto.Upload{Data: []byte("pic"), ContentType: "image/png"})
	require.NoError(t, err)

	t.Run("owner reads own image", func(t *testing.T) {
		image, err := uc.GetForOwner(ctx, owner, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, image.ID)
	})

	t.Run("missing image is not found", func(t *testing.T) {
		_, err := uc.GetForOwner(ctx, owner, uuid.New())
		assert.ErrorIs(t, err, errs.ErrRecordNotFound)
	})

	t.Run("another user's image is forbidden", func(t *testing.T) {
		_, err := uc.GetForOwner(ctx, uuid.New(), stored.ID)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("GetBytes returns the stored blob", func(t *testing.T) {
		image, data, err := uc.GetBytes(ctx, owner, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, image.ID)
		assert.Equal(t, []byte("pic"), data)
	})
}
