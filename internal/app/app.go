// Package app wires the repositories, cloud collaborators and services of the
// RLS manager.
package app

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/cloud"
	"qs-rls-manager/internal/config"
	"qs-rls-manager/internal/db/repository"
	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
	"qs-rls-manager/internal/service/dataset"
	"qs-rls-manager/internal/service/permission"
	"qs-rls-manager/internal/service/rls"
)

// Deps holds what main() must provide.
type Deps struct {
	Cfg    *config.Config
	DB     *sql.DB // migrated write pool
	Logger *slog.Logger
	// Prometheus registry the collectors register on. A fresh registry is
	// created when nil.
	Registry *prometheus.Registry
	// Clients overrides the AWS client registry (tests, local emulators).
	Clients domain.ClientRegistry
}

// Services groups the services the API and CLI call.
type Services struct {
	Dataset    *dataset.Service
	Permission *permission.Service
	RLS        *rls.Service
}

// App is the fully wired application.
type App struct {
	Services Services
	Metrics  *metrics.Metrics
}

// New wires everything from deps. It makes no network calls: AWS clients are
// created per region on first use.
func New(deps Deps) *App {
	cfg := deps.Cfg

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	// === Repositories ===
	datasetRepo := repository.NewDatasetRepo(deps.DB)
	permissionRepo := repository.NewPermissionRepo(deps.DB)
	historyRepo := repository.NewPublishHistoryRepo(deps.DB)
	visibilityRepo := repository.NewVisibilityRepo(deps.DB)
	regionRepo := repository.NewRegionRepo(deps.DB)

	// === Cloud ===
	clients := deps.Clients
	if clients == nil {
		clients = cloud.NewRegistry(CloudOptions(cfg), deps.Logger)
	}
	directory := cloud.NewPrincipalDirectory(clients, cfg.AWS.Namespace, cfg.PrincipalCacheTTL)

	// === Services ===
	rlsSvc := rls.NewService(rls.Deps{
		Datasets:       datasetRepo,
		Permissions:    permissionRepo,
		History:        historyRepo,
		Visibility:     visibilityRepo,
		Regions:        regionRepo,
		Clients:        clients,
		Monitor:        rls.NewMonitor(cfg.IngestionPollInterval, m),
		Metrics:        m,
		Logger:         deps.Logger,
		AdminPrincipal: cfg.AWS.AdminPrincipalArn,
	})

	return &App{
		Services: Services{
			Dataset:    dataset.NewService(datasetRepo, regionRepo, deps.Logger),
			Permission: permission.NewService(permissionRepo, datasetRepo, directory, deps.Logger),
			RLS:        rlsSvc,
		},
		Metrics: m,
	}
}

// Handler returns the API handler over the app's services.
func (a *App) Handler(logger *slog.Logger) *api.Handler {
	return api.NewHandler(a.Services.Dataset, a.Services.Permission, a.Services.RLS, logger)
}

// CloudOptions maps the AWS section of the config onto the client options.
func CloudOptions(cfg *config.Config) cloud.Options {
	return cloud.Options{
		AccountID:       cfg.AWS.AccountID,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		EndpointURL:     cfg.AWS.EndpointURL,
		AdminPrincipal:  cfg.AWS.AdminPrincipalArn,
	}
}
