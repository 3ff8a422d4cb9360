package registry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syllabus-rag/internal/objectstore"
	"syllabus-rag/internal/objectstore/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_AddCreatesAndMirrors(t *testing.T) {
	ctx := context.Background()
	objects := memory.New()
	local := filepath.Join(t.TempDir(), "metadata.json")
	s := NewStore(objects, WithLocalPath(local), WithLogger(quietLogger()))

	reg, err := s.Add(ctx, "CSE", "2023-24")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-24"}, reg.Years("CSE"))

	remote, ok := objects.Bytes(DefaultKey)
	require.True(t, ok)
	mirrored, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, string(remote), string(mirrored))

	loaded, err := s.LoadLocal()
	require.NoError(t, err)
	assert.True(t, loaded.Has("CSE", "2023-24"))
}

func TestStore_RepeatedAddKeepsSingleEntry(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New(), WithLocalPath(""), WithLogger(quietLogger()))

	for i := 0; i < 3; i++ {
		_, err := s.Add(ctx, "CSE", "2023-24")
		require.NoError(t, err)
	}
	reg, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-24"}, reg.Years("CSE"))
	assert.Equal(t, 1, reg.Len())
}

func TestStore_FetchMissingIsEmpty(t *testing.T) {
	s := NewStore(memory.New(), WithLocalPath(filepath.Join(t.TempDir(), "m.json")))
	reg, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reg.Branches())
}

// racingStore lets a second writer slip in between the first writer's read
// and its conditional write.
type racingStore struct {
	*memory.Store
	once  sync.Once
	rival func()
}

func (r *racingStore) Put(ctx context.Context, key string, body io.ReadSeeker, cond objectstore.Condition) (string, error) {
	r.once.Do(r.rival)
	return r.Store.Put(ctx, key, body, cond)
}

func TestStore_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	objects := &racingStore{Store: memory.New()}
	other := NewStore(objects.Store, WithLocalPath(""), WithLogger(quietLogger()))
	objects.rival = func() {
		_, err := other.Add(ctx, "EEE", "2022-23")
		require.NoError(t, err)
	}

	s := NewStore(objects, WithLocalPath(""), WithLogger(quietLogger()))
	reg, err := s.Add(ctx, "CSE", "2023-24")
	require.NoError(t, err)

	assert.True(t, reg.Has("CSE", "2023-24"))
	assert.True(t, reg.Has("EEE", "2022-23"))
}

type alwaysConflict struct{ *memory.Store }

func (a alwaysConflict) Put(context.Context, string, io.ReadSeeker, objectstore.Condition) (string, error) {
	return "", objectstore.ErrPreconditionFailed
}

func TestStore_GivesUpAfterMaxAttempts(t *testing.T) {
	s := NewStore(alwaysConflict{memory.New()}, WithLocalPath(""), WithMaxAttempts(2), WithLogger(quietLogger()))
	_, err := s.Add(context.Background(), "CSE", "2023-24")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	objects := memory.New()
	_, err := objects.Put(ctx, DefaultKey, strings.NewReader("not json"), objectstore.Condition{})
	require.NoError(t, err)

	_, err = NewStore(objects, WithLocalPath("")).Fetch(ctx)
	assert.Error(t, err)
}
