package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	"github.com/igoryan-dao/thinking-tools/internal/config"
	"github.com/igoryan-dao/thinking-tools/internal/sessions"
)

func testConfig(t *testing.T, storage string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Storage:          storage,
		DataDir:          dir,
		DBPath:           filepath.Join(dir, "sessions.db"),
		MaxConversations: 4,
		Search:           config.SearchConfig{Threshold: 0.5, CacheSize: 8},
	}
}

func TestOpenStore(t *testing.T) {
	for storage, want := range map[string]any{
		config.StorageMemory: &sessions.MemoryStore{},
		config.StorageFile:   &sessions.FileStore{},
		config.StorageSQLite: &sessions.SQLiteStore{},
	} {
		t.Run(storage, func(t *testing.T) {
			store, err := OpenStore(testConfig(t, storage), nil)
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, want, store)
		})
	}

	_, err := OpenStore(testConfig(t, "redis"), nil)
	assert.Error(t, err)
}

func TestBuildSearch(t *testing.T) {
	cat := catalog.MustDefault()

	provider, local, err := BuildSearch(config.SearchConfig{}, cat, nil)
	require.NoError(t, err)
	defer local.Close()
	assert.Equal(t, "chain(local)", provider.Name())

	remote, local2, err := BuildSearch(config.SearchConfig{
		SupabaseURL: "https://example.supabase.co",
		SupabaseKey: "k",
		OpenAIKey:   "sk",
		Threshold:   0.6,
	}, cat, nil)
	require.NoError(t, err)
	defer local2.Close()
	assert.Equal(t, "chain(cached(supabase),local)", remote.Name())
}

func TestNew_EndToEnd(t *testing.T) {
	cfg := testConfig(t, config.StorageSQLite)
	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	ctx := context.Background()
	a.Hub.Handle(ctx, "u", "/method:swot 신규 시장")
	a.Hub.Handle(ctx, "u", "브랜드 인지도")

	list, err := a.Store.List(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"브랜드 인지도"}, list[0].Answers)
}

func TestNew_BadCatalog(t *testing.T) {
	cfg := testConfig(t, config.StorageMemory)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNewTranscriber(t *testing.T) {
	cfg := testConfig(t, config.StorageMemory)

	tr, err := NewTranscriber(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, tr)

	cfg.Voice.Provider = config.VoiceOpenAI
	cfg.Search.OpenAIKey = "sk"
	tr, err = NewTranscriber(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, tr)

	cfg.Voice = config.VoiceConfig{Provider: config.VoiceWhisper, WhisperPath: "/nonexistent/whisper", WhisperModel: "/nonexistent/model"}
	_, err = NewTranscriber(cfg, nil)
	assert.Error(t, err)
}
