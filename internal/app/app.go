package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"ClaimsPlatform/internal/config"
	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/infrastructure/csvsource"
	"ClaimsPlatform/internal/infrastructure/scheduler"
	"ClaimsPlatform/internal/infrastructure/storage"
	"ClaimsPlatform/internal/logging"
	"ClaimsPlatform/internal/sampledata"
	"ClaimsPlatform/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	manager *usecase.FilterManager
	refresh *usecase.RefreshScheduler
	loader  *usecase.Loader
}

// New builds the runnable application. A store that cannot be configured is
// fatal here; nothing later on the read path reports configuration errors.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("no database DSN configured")
	}
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repository := storage.NewPostgresRepository(db)
	store := storage.NewCachingBatchStore(repository, cfg.Refresh.MetadataCacheTTL())

	registry := usecase.NewRegistry(usecase.RetentionPolicy{
		MaxFilters: cfg.Filters.Retention.MaxFilters,
		MaxAge:     cfg.Filters.Retention.MaxAge(),
	})
	builder := usecase.NewBuilder(store, cfg.Filters.FalsePositiveRate, cfg.Filters.PageSize,
		baseLogger.With("component", "builder"))
	manager := usecase.NewFilterManager(store, builder, registry, cfg.Refresh.SafetyMargin(),
		baseLogger.With("component", "filtermanager"))

	driver := scheduler.NewIntervalScheduler(cfg.Refresh.InitialDelay(), cfg.Refresh.Interval())
	refresh := usecase.NewRefreshScheduler(driver, manager)

	var loader *usecase.Loader
	if cfg.SampleData.Dir != "" {
		parserRegistry := sampledata.NewRegistry()
		idgen := sampledata.NewSubjectIDGenerator("2014", "%05d", 1, 99999)
		for _, name := range cfg.SampleData.ClaimTypes {
			parserRegistry.Register(csvsource.NewClaimParser(domain.ClaimType(name), idgen))
		}
		source := csvsource.NewSource(cfg.SampleData.Dir, claimTypes(cfg.SampleData.ClaimTypes),
			parserRegistry, baseLogger.With("component", "csvsource"))
		loader = usecase.NewLoader(usecase.LoaderDeps{
			Source: source,
			Writer: repository,
			Logger: baseLogger.With("component", "loader"),
		})
	}

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		db:      db,
		manager: manager,
		refresh: refresh,
		loader:  loader,
	}, nil
}

// Manager exposes the filter manager to the serving layer.
func (a *Application) Manager() *usecase.FilterManager {
	return a.manager
}

// Run loads sample data when configured, then drives the background refresh
// until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if a.loader != nil {
		if _, err := a.loader.Load(ctx); err != nil {
			return fmt.Errorf("load sample data: %w", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.refresh.Start(ctx); err != nil {
			return fmt.Errorf("start refresh scheduler: %w", err)
		}
		<-ctx.Done()
		return a.refresh.Stop(context.Background())
	})

	return group.Wait()
}

func claimTypes(names []string) []domain.ClaimType {
	types := make([]domain.ClaimType, 0, len(names))
	for _, name := range names {
		types = append(types, domain.ClaimType(name))
	}
	return types
}
