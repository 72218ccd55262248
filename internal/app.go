// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	router "finflow-ledger/internal/api"
	"finflow-ledger/internal/api/handler"
	"finflow-ledger/internal/catalog"
	"finflow-ledger/internal/config"
	"finflow-ledger/internal/repository"
	"finflow-ledger/internal/repository/postgres"
	"finflow-ledger/internal/service"
	"finflow-ledger/internal/util"
	"finflow-ledger/internal/worker"
	"finflow-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *zap.Logger
	DB     *sqlx.DB

	// Repositories
	WalletRepository      repository.WalletRepository
	TransactionRepository repository.TransactionRepository
	DepositRepository     repository.DepositRepository
	WithdrawalRepository  repository.WithdrawalRepository
	PlanRepository        repository.PlanRepository
	InvestmentRepository  repository.InvestmentRepository

	// Services
	WalletService     service.WalletService
	RequestService    service.RequestService
	InvestmentService service.InvestmentService
	OverviewService   service.OverviewService

	// HTTP API
	HTTPHandler http.Handler

	sweeper *worker.MaturitySweeper
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: zap.NewNop()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	app.Logger = util.InitLogger(cfg.LogLevel)
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database and apply migrations
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if err := db.RunMigrations(app.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.Logger.Info("Database migrations applied.")

	// 4. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository()
	app.TransactionRepository = postgres.NewTransactionRepository()
	app.DepositRepository = postgres.NewDepositRepository()
	app.WithdrawalRepository = postgres.NewWithdrawalRepository()
	app.PlanRepository = postgres.NewPlanRepository()
	app.InvestmentRepository = postgres.NewInvestmentRepository()
	app.Logger.Info("Repositories initialized.")

	// 5. Seed the plan catalog
	if err := app.seedPlans(ctx); err != nil {
		return err
	}

	// 6. Initialize Services
	txManager := db.NewTxManager(app.DB)
	app.WalletService = service.NewWalletService(
		app.DB,
		txManager,
		app.WalletRepository,
		app.TransactionRepository,
		app.Logger,
	)
	app.RequestService = service.NewRequestService(
		app.DB,
		txManager,
		app.WalletRepository,
		app.TransactionRepository,
		app.DepositRepository,
		app.WithdrawalRepository,
		app.Config.MinDepositAmount,
		app.Logger,
	)
	app.InvestmentService = service.NewInvestmentService(
		app.DB,
		txManager,
		app.WalletRepository,
		app.TransactionRepository,
		app.PlanRepository,
		app.InvestmentRepository,
		app.Config.MaturitySweepWorkers,
		app.Logger,
	)
	app.OverviewService = service.NewOverviewService(
		app.DB,
		app.WalletRepository,
		app.TransactionRepository,
		app.DepositRepository,
		app.WithdrawalRepository,
		app.InvestmentRepository,
	)
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	app.HTTPHandler = router.NewRouter(router.Handlers{
		Wallet:     handler.NewWalletHandler(app.WalletService, app.OverviewService, app.Logger),
		Investment: handler.NewInvestmentHandler(app.InvestmentService, app.Logger),
		Request:    handler.NewRequestHandler(app.RequestService, app.Logger),
	}, app.Config.JWTSecret)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// seedPlans upserts the configured catalog. A missing file leaves the stored plans untouched.
func (app *Application) seedPlans(ctx context.Context) error {
	if app.Config.PlansFile == "" {
		return nil
	}
	plans, err := catalog.LoadPlans(app.Config.PlansFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			app.Logger.Warn("Plan catalog not found, skipping seed", zap.String("path", app.Config.PlansFile))
			return nil
		}
		return fmt.Errorf("failed to load plan catalog: %w", err)
	}
	if err := catalog.SeedPlans(ctx, app.DB, app.PlanRepository, plans, app.Logger); err != nil {
		return fmt.Errorf("failed to seed plan catalog: %w", err)
	}
	return nil
}

// StartWorkers launches the background maturity sweep. An interval of zero disables it.
func (app *Application) StartWorkers(ctx context.Context) {
	if app.Config.MaturitySweepInterval <= 0 {
		app.Logger.Info("Maturity sweeper disabled.")
		return
	}
	app.sweeper = worker.NewMaturitySweeper(app.InvestmentService, app.Config.MaturitySweepInterval, app.Logger)
	go app.sweeper.Start(ctx)
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.sweeper != nil {
		app.sweeper.Stop()
		app.Logger.Info("Maturity sweeper stopped.")
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", zap.Error(err))
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	_ = app.Logger.Sync()
	return nil
}
