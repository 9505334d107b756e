package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal"
	"github.com/frahmantamala/org-management/internal/access"
	accesspostgres "github.com/frahmantamala/org-management/internal/access/postgres"
	"github.com/frahmantamala/org-management/internal/admin"
	adminpostgres "github.com/frahmantamala/org-management/internal/admin/postgres"
	"github.com/frahmantamala/org-management/internal/auth"
	authpostgres "github.com/frahmantamala/org-management/internal/auth/postgres"
	"github.com/frahmantamala/org-management/internal/core/events"
	"github.com/frahmantamala/org-management/internal/department"
	departmentpostgres "github.com/frahmantamala/org-management/internal/department/postgres"
	"github.com/frahmantamala/org-management/internal/importer"
	importerpostgres "github.com/frahmantamala/org-management/internal/importer/postgres"
	"github.com/frahmantamala/org-management/internal/resource"
	resourcepostgres "github.com/frahmantamala/org-management/internal/resource/postgres"
	"github.com/frahmantamala/org-management/internal/team"
	teampostgres "github.com/frahmantamala/org-management/internal/team/postgres"
	"github.com/frahmantamala/org-management/internal/transport/rest"
	"github.com/frahmantamala/org-management/internal/user"
	userpostgres "github.com/frahmantamala/org-management/internal/user/postgres"
	"github.com/frahmantamala/org-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	lg := deps.Logger
	db := deps.GormDB

	bus := events.NewEventBus(lg)

	engine := access.NewEngine(accesspostgres.NewDirectoryRepository(db), lg)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authpostgres.NewRepository(db), tokenGen, cfg.Security.BCryptCost)
	authHandler := auth.NewHandler(authService)
	roles := auth.NewRoleAuthorization(lg)

	departmentService := department.NewService(
		departmentpostgres.NewRepository(db), engine, bus, cfg.Department.DeletePolicy, lg)
	userService := user.NewService(
		userpostgres.NewRepository(db), engine, bus, cfg.Security.BCryptCost, lg)
	resourceService := resource.NewService(
		resourcepostgres.NewRepository(db), engine, bus, lg)
	teamService := team.NewService(
		teampostgres.NewRepository(db), engine, lg)
	importerService := importer.NewService(
		importerpostgres.NewRepository(db), bus, cfg.Security.BCryptCost, lg)

	adminService := admin.NewService(adminpostgres.NewRepository(db), lg)
	adminService.SubscribeAuditTrail(bus)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, rest.Handlers{
		Auth:       authHandler,
		Roles:      roles,
		Department: department.NewHandler(lg, departmentService),
		User:       user.NewHandler(lg, userService),
		Resource:   resource.NewHandler(lg, resourceService),
		Team:       team.NewHandler(lg, teamService),
		Importer:   importer.NewHandler(lg, importerService),
		Admin:      admin.NewHandler(lg, adminService),
	}, lg)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn: db.DB,
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
