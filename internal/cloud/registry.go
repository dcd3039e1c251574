// Package cloud adapts the AWS SDK clients (S3, Glue, QuickSight) to the
// domain collaborator interfaces and caches them per region.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/quicksight"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"qs-rls-manager/internal/domain"
)

// Options configures the clients built by a Registry.
type Options struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	// EndpointURL overrides every service endpoint (for local emulators).
	EndpointURL    string
	AdminPrincipal string
}

// Factory builds the collaborators for one region.
type Factory func(ctx context.Context, region string) (*domain.CloudClients, error)

// Registry lazily creates and caches one set of clients per region.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*domain.CloudClients
	factory Factory
	logger  *slog.Logger
}

// NewRegistry returns a Registry that builds AWS SDK clients from opts.
func NewRegistry(opts Options, logger *slog.Logger) *Registry {
	return NewRegistryWithFactory(AWSFactory(opts), logger)
}

// NewRegistryWithFactory returns a Registry backed by a custom factory.
func NewRegistryWithFactory(factory Factory, logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*domain.CloudClients),
		factory: factory,
		logger:  logger.With("component", "cloud-registry"),
	}
}

var _ domain.ClientRegistry = (*Registry)(nil)

// ForRegion returns the cached clients for region, creating them on first use.
func (r *Registry) ForRegion(ctx context.Context, region string) (*domain.CloudClients, error) {
	if region == "" {
		return nil, domain.ErrValidation("region is required")
	}

	r.mu.RLock()
	if c, ok := r.entries[region]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.entries[region]; ok {
		return c, nil
	}

	c, err := r.factory(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("create clients for %s: %w", region, err)
	}
	r.entries[region] = c
	r.logger.Info("created regional clients", "region", region)
	return c, nil
}

// AWSFactory builds S3, Glue and QuickSight clients from the default
// credential chain, or from static keys when both are set.
func AWSFactory(opts Options) Factory {
	return func(ctx context.Context, region string) (*domain.CloudClients, error) {
		loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
		if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
			))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		var endpoint *string
		if opts.EndpointURL != "" {
			endpoint = aws.String(opts.EndpointURL)
		}

		s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint != nil {
				o.BaseEndpoint = endpoint
				o.UsePathStyle = true
			}
		})
		glueClient := glue.NewFromConfig(cfg, func(o *glue.Options) {
			o.BaseEndpoint = endpoint
		})
		qsClient := quicksight.NewFromConfig(cfg, func(o *quicksight.Options) {
			o.BaseEndpoint = endpoint
		})

		return &domain.CloudClients{
			Region:  region,
			Storage: NewS3Store(s3Client),
			Catalog: NewGlueCatalog(glueClient),
			BI:      NewQuickSight(qsClient, opts.AccountID, opts.AdminPrincipal),
		}, nil
	}
}
