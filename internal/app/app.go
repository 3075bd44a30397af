// Package app assembles the shared runtime from configuration: catalog,
// session store, search providers and the conversation hub.
package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	"github.com/igoryan-dao/thinking-tools/internal/config"
	"github.com/igoryan-dao/thinking-tools/internal/conversation"
	"github.com/igoryan-dao/thinking-tools/internal/search"
	"github.com/igoryan-dao/thinking-tools/internal/sessions"
	"github.com/igoryan-dao/thinking-tools/internal/voice"
)

// App holds everything the surfaces share
type App struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Store   sessions.Store
	Search  search.Provider
	Hub     *conversation.Hub
	Logger  *zap.Logger

	closers []func() error
}

// New builds the runtime described by cfg
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	a := &App{Config: cfg, Catalog: cat, Logger: logger}

	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	provider, local, err := BuildSearch(cfg.Search, cat, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Search = provider
	a.closers = append(a.closers, local.Close)

	deps := conversation.NewDeps(cat, store, provider, logger)
	a.Hub = conversation.NewHub(deps, cfg.MaxConversations)

	logger.Info("runtime ready",
		zap.Int("methods", cat.Len()),
		zap.String("storage", cfg.Storage),
		zap.String("search", provider.Name()))
	return a, nil
}

// Close releases the store and the search index
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the session store selected by cfg.Storage
func OpenStore(cfg *config.Config, logger *zap.Logger) (sessions.Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return sessions.NewMemoryStore(), nil
	case config.StorageSQLite:
		store, err := sessions.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.StorageFile, "":
		store, err := sessions.NewFileStore(cfg.SessionDir(), logger)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// BuildSearch returns the remote-first search chain. The local index is
// always present; Supabase joins it, behind a cache, when credentials are set.
func BuildSearch(cfg config.SearchConfig, cat *catalog.Catalog, logger *zap.Logger) (search.Provider, *search.Local, error) {
	local, err := search.NewLocal(cat)
	if err != nil {
		return nil, nil, err
	}

	providers := []search.Provider{}
	if cfg.RemoteEnabled() {
		remote := search.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, search.NewOpenAIEmbedder(cfg.OpenAIKey))
		remote.Threshold = cfg.Threshold
		providers = append(providers, search.NewCached(remote, cfg.CacheSize))
	}
	providers = append(providers, local)

	return search.NewChain(logger, providers...), local, nil
}

// NewTranscriber returns the configured voice backend, or nil when voice
// notes are disabled
func NewTranscriber(cfg *config.Config, logger *zap.Logger) (voice.Transcriber, error) {
	switch cfg.Voice.Provider {
	case config.VoiceWhisper:
		w, err := voice.NewWhisperCPP(cfg.Voice.WhisperPath, cfg.Voice.WhisperModel, cfg.TmpDir(), logger)
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.VoiceOpenAI:
		return voice.NewOpenAI(cfg.Search.OpenAIKey), nil
	default:
		return nil, nil
	}
}
