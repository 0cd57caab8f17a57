package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/ep-records/config"
	"github.com/upb/ep-records/handlers"
	"github.com/upb/ep-records/middleware"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/repositories/postgres"
	"github.com/upb/ep-records/services/audit"
	"github.com/upb/ep-records/services/gateway"
	"github.com/upb/ep-records/services/login"
	"github.com/upb/ep-records/services/principal"
	"github.com/upb/ep-records/token"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	AuditDB *postgres.DB
	Logger  *zap.Logger

	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Credential gateway
	Codec      *token.Codec
	Dispatcher *gateway.Dispatcher
	Gateway    *middleware.Gateway

	// Audit pipeline
	Actors      *audit.ActorIdentifier
	AuditLogger *audit.Logger

	// Services
	Logins     *login.Service
	Principals *principal.Service

	// Handlers
	HealthHandler    *handlers.HealthHandler
	AuthHandler      *handlers.AuthHandler
	PrincipalHandler *handlers.PrincipalHandler
	AuditLogHandler  *handlers.AuditLogHandler

	closed bool
}

// NewDependencies opens the configured databases and wires every component.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.GetDB().PingContext(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesFromFactory(cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesFromFactory wires the application over an existing repository
// factory. It performs no I/O.
func NewDependenciesFromFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("credential signing secret is not configured")
	}

	d := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
		AuditDB:     factory.GetAuditDB(),
	}

	d.initRepositories()
	d.initGateway()
	d.initAudit()
	d.initServices()
	d.initHandlers()

	return d, nil
}

func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Logger.Debug("repositories initialized")
}

func (d *Dependencies) initGateway() {
	d.Codec = token.NewCodec(d.Config.Auth.JWTSecret)
	d.Dispatcher = gateway.NewDispatcher(d.Codec, gateway.LoadersFromRepositories(d.Repos), d.Logger)
	d.Gateway = middleware.NewGateway(d.Dispatcher, d.Config.Auth.TokenHeader, d.Logger)
}

func (d *Dependencies) initAudit() {
	d.Actors = audit.NewActorIdentifier(d.Codec, d.Repos.StaffUsers, d.Logger)
	d.AuditLogger = audit.NewLogger(d.Repos.AuditLogs, d.Actors, d.Logger,
		audit.WithWriteTimeout(d.Config.Audit.WriteTimeout))
}

func (d *Dependencies) initServices() {
	d.Logins = login.NewService(
		d.Repos.StaffUsers,
		d.Repos.Instructors,
		d.Repos.Apprentices,
		d.Codec,
		d.AuditLogger,
		d.Logger,
	)
	d.Principals = principal.NewService(d.Repos, d.TxManager, d.AuditLogger, d.Logger)
}

func (d *Dependencies) initHandlers() {
	trustProxy := d.Config.Auth.TrustProxy
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.AuditDB.DB, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Logins, trustProxy, d.Logger)
	d.PrincipalHandler = handlers.NewPrincipalHandler(d.Principals, trustProxy, d.Logger)
	d.AuditLogHandler = handlers.NewAuditLogHandler(d.Repos.AuditLogs, d.Logger)
}

// Migrate creates the principal and audit schemas. Safe to run repeatedly.
func (d *Dependencies) Migrate(ctx context.Context) error {
	if err := d.RepoFactory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	d.Logger.Info("schema initialized")
	return nil
}

// Close gracefully shuts down all dependencies. Subsequent calls are no-ops.
func (d *Dependencies) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}
	return nil
}
