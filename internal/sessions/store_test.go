package sessions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

func sampleState(id, user string, updated time.Time) *State {
	return &State{
		SessionID:   id,
		UserID:      user,
		Problem:     "팀 생산성",
		Category:    catalog.Organizational,
		MethodID:    "six_hats",
		MethodName:  "Six Thinking Hats",
		CurrentStep: 2,
		TotalSteps:  6,
		Answers:     []string{"회의가 길다", "지친다"},
		CreatedAt:   updated.Add(-time.Hour),
		UpdatedAt:   updated,
	}
}

func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), nil)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStores(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 123456789, time.UTC)

	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			_, err := store.Load(ctx, "a1b2c3d4e5f60718")
			assert.ErrorIs(t, err, ErrNotFound)

			s := sampleState("a1b2c3d4e5f60718", "u1", base)
			require.NoError(t, store.Save(ctx, s))

			got, err := store.Load(ctx, s.SessionID)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(s, got))

			s.Answers = append(s.Answers, "세 번째")
			s.CurrentStep = 3
			s.UpdatedAt = base.Add(time.Minute)
			require.NoError(t, store.Save(ctx, s))

			got, err = store.Load(ctx, s.SessionID)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(s, got))

			require.NoError(t, store.Save(ctx, sampleState("bbbbbbbbbbbbbbbb", "u1", base.Add(time.Hour))))
			require.NoError(t, store.Save(ctx, sampleState("cccccccccccccccc", "u2", base)))

			list, err := store.List(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "bbbbbbbbbbbbbbbb", list[0].SessionID)
			assert.Equal(t, "a1b2c3d4e5f60718", list[1].SessionID)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := sampleState("id", "u", time.Now())
	require.NoError(t, store.Save(ctx, s))

	s.Answers[0] = "mutated"

	got, err := store.Load(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "회의가 길다", got.Answers[0])
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Load(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Save(ctx, sampleState("../escape", "u", time.Now())))
}

func TestFileStore_CorruptRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	bad := `{"session_id":"skewed","total_steps":3,"current_step":2,"answers":["only one"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skewed.json"), []byte(bad), 0o644))
	require.NoError(t, store.Save(ctx, sampleState("good", "u", time.Now())))

	_, err = store.Load(ctx, "broken")
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = store.Load(ctx, "skewed")
	assert.ErrorIs(t, err, ErrCorrupt)

	list, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "good", list[0].SessionID)

	m := newTestManager(t, store)
	_, ok := m.LoadSession(ctx, "broken")
	assert.False(t, ok)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, sampleState("same", "u", time.Now())))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "same.json", entries[0].Name())
}
