package container

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/infrastructure/export"
	"github.com/garyjia/expense-approval/internal/infrastructure/external/currency"
	infraLark "github.com/garyjia/expense-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/expense-approval/internal/infrastructure/external/openai"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-approval/internal/infrastructure/worker"
	"github.com/garyjia/expense-approval/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components
type DatabaseBundle struct {
	Database       *database.DB
	TransactionMgr *sqlite.DB
}

// ExternalBundle holds the adapters to outside services. Extractor and
// Messenger are nil when not configured.
type ExternalBundle struct {
	Converter port.CurrencyConverter
	Extractor port.ReceiptExtractor
	Messenger port.Messenger
	Exporter  port.ClaimExporter
}

// ProvideDatabase opens the database and applies pending migrations
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &DatabaseBundle{
		Database:       db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Claims:    repository.NewClaimRepository(sqlDB, logger),
		Steps:     repository.NewStepRepository(sqlDB, logger),
		Rules:     repository.NewRuleRepository(sqlDB, logger),
		History:   repository.NewHistoryRepository(sqlDB, logger),
		Directory: repository.NewDirectoryRepository(sqlDB, logger),
	}, nil
}

// ProvideExternal creates the currency converter, the claims exporter and,
// when configured, the receipt extractor and Lark messenger
func ProvideExternal(cfg *Config, logger *zap.Logger) (*ExternalBundle, error) {
	bundle := &ExternalBundle{
		Converter: currency.NewClient(currency.Config{
			BaseURL: cfg.Currency.BaseURL,
			Timeout: cfg.Currency.Timeout,
		}, logger.Named("currency")),
		Exporter: export.NewClaimsExcelExporter(logger.Named("export")),
	}

	if cfg.OpenAI.APIKey != "" {
		extractor, err := openai.NewReceiptExtractor(openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxPages:    cfg.OpenAI.MaxPages,
			PromptsPath: cfg.OpenAI.PromptsPath,
		}, logger.Named("openai"))
		if err != nil {
			return nil, fmt.Errorf("failed to create receipt extractor: %w", err)
		}
		bundle.Extractor = extractor
	} else {
		logger.Info("Receipt extraction disabled, openai.api_key not set")
	}

	if cfg.Lark.AppID != "" {
		client := infraLark.NewClient(infraLark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			BaseURL:   cfg.Lark.BaseURL,
		})
		bundle.Messenger = infraLark.NewMessenger(client, logger.Named("lark"))
	} else {
		logger.Info("Notifications disabled, lark.app_id not set")
	}

	return bundle, nil
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(NewLoggerAdapter(logger.Named("dispatcher"))))
}

// WorkflowDeps holds dependencies required for creating the workflow engine
type WorkflowDeps struct {
	Repos          *RepositoryBundle
	TxManager      port.TransactionManager
	Dispatcher     dispatcher.Dispatcher
	WorkflowConfig *WorkflowConfig
	Logger         *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}

	opts := []workflow.EngineOption{
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(NewLoggerAdapter(deps.Logger.Named("workflow"))),
	}
	if deps.WorkflowConfig != nil {
		opts = append(opts, workflow.WithAdminThreshold(deps.WorkflowConfig.AdminThreshold))
	}

	return workflow.NewEngine(workflow.Repositories{
		Claims:    deps.Repos.Claims,
		Steps:     deps.Repos.Steps,
		Rules:     deps.Repos.Rules,
		Directory: deps.Repos.Directory,
		History:   deps.Repos.History,
	}, deps.TxManager, opts...), nil
}

// ServiceDeps holds dependencies required for creating services
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Engine     workflow.WorkflowEngine
	External   *ExternalBundle
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

var notifiedEvents = []event.Type{
	event.TypeStepActivated,
	event.TypeClaimApproved,
	event.TypeClaimRejected,
	event.TypeClaimStalled,
}

// ProvideServices creates all application services and subscribes the
// notification handlers when a messenger is configured
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Engine == nil || deps.External == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	serviceLogger := NewLoggerAdapter(deps.Logger.Named("service"))

	bundle := &ServiceBundle{
		Claims: service.NewClaimService(service.ClaimServiceDeps{
			Engine:    deps.Engine,
			Claims:    deps.Repos.Claims,
			Steps:     deps.Repos.Steps,
			History:   deps.Repos.History,
			Directory: deps.Repos.Directory,
			Converter: deps.External.Converter,
			Extractor: deps.External.Extractor,
			Logger:    serviceLogger,
		}),
		Rules:   service.NewRuleService(deps.Repos.Rules, deps.Repos.Directory, serviceLogger),
		Reports: service.NewReportService(deps.Repos.Claims, deps.External.Exporter, serviceLogger),
	}

	if deps.External.Messenger != nil && deps.Dispatcher != nil {
		bundle.Notification = service.NewNotificationService(
			deps.Repos.Claims,
			deps.Repos.Directory,
			deps.External.Messenger,
			serviceLogger,
		)
		bundle.Notification.Register(deps.Dispatcher)

		fields := make([]zap.Field, 0, len(notifiedEvents))
		for _, t := range notifiedEvents {
			fields = append(fields, zap.Strings(t.String(), deps.Dispatcher.Subscribers(t)))
		}
		deps.Logger.Info("Notification handlers registered", fields...)
	}

	return bundle, nil
}

// ProvideWorkers creates the background workers
func ProvideWorkers(repos *RepositoryBundle, cfg *WorkflowConfig, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger.Named("worker"))
	manager.Register(worker.NewStalledClaimReporter(repos.Claims, cfg.StalledReportInterval, logger.Named("stalled")))
	return manager
}
