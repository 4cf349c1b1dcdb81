package config

import (
	"fmt"

	"page-reader/internal/domain"
	"page-reader/internal/protocol"
	"page-reader/internal/repository"
	"page-reader/internal/service"
	"page-reader/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config           *AppConfig
	Logger           domain.Logger
	Store            domain.ObservableStore
	ArticleService   *service.ArticleService
	HighlightService *service.HighlightService
	LibraryService   *service.LibraryService
	BackupService    *service.BackupService
	Dispatcher       *protocol.Dispatcher
}

// NewContainer reads the configuration and wires the application.
func NewContainer() (*Container, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}
	return NewContainerWithConfig(cfg, logger.NewLogger(cfg.GetLogLevel()))
}

// NewContainerWithConfig wires the application around an existing configuration.
func NewContainerWithConfig(cfg *AppConfig, appLogger domain.Logger) (*Container, error) {
	backend, err := openStore(cfg, appLogger)
	if err != nil {
		return nil, err
	}
	store := repository.NewNotifyingStore(backend, appLogger)

	timeout := cfg.GetStoreTimeout()
	articles := service.NewArticleService(store, appLogger, service.WithArticleTimeout(timeout))
	highlights := service.NewHighlightService(store, store, appLogger, service.HighlightServiceConfig{
		ContextChars: cfg.GetContextChars(),
		SettleDelay:  cfg.GetSettleDelay(),
		StoreTimeout: timeout,
	})
	library := service.NewLibraryService(store, appLogger, timeout)
	backup := service.NewBackupService(store, appLogger, timeout)

	return &Container{
		Config:           cfg,
		Logger:           appLogger,
		Store:            store,
		ArticleService:   articles,
		HighlightService: highlights,
		LibraryService:   library,
		BackupService:    backup,
		Dispatcher:       protocol.NewDispatcher(articles, highlights, library, appLogger),
	}, nil
}

func openStore(cfg *AppConfig, appLogger domain.Logger) (domain.Store, error) {
	switch cfg.GetStoreDriver() {
	case DriverSupabase:
		client := repository.NewSupabaseClient(cfg, appLogger)
		if err := client.Initialize(); err != nil {
			return nil, err
		}
		return repository.NewSupabaseStore(client.DB(), appLogger), nil
	case DriverSQLite, "":
		store, err := repository.OpenSQLite(cfg.GetDatabasePath())
		if err != nil {
			return nil, err
		}
		appLogger.Info("SQLite store opened", "path", cfg.GetDatabasePath())
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.GetStoreDriver())
	}
}

// Close releases the store.
func (c *Container) Close() error {
	return c.Store.Close()
}
