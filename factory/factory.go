package factory

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/propgrid"
	"github.com/lychee-technology/propgrid/internal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TreeBuilder turns a document into a property tree.
type TreeBuilder interface {
	Build(data []byte) (*propgrid.ComposedProperty, error)
}

// NewCollapseStore creates the collapse-state store selected by
// config.Storage.Backend. Remote backends are wrapped with a per-call timeout
// and, when enabled, a circuit breaker.
//
// Usage:
//
//	config := propgrid.DefaultConfig()
//	config.Storage.Backend = propgrid.BackendFile
//	store, err := factory.NewCollapseStore(ctx, config)
//	if err != nil {
//	    // handle error
//	}
//	defer store.Close()
func NewCollapseStore(ctx context.Context, config *propgrid.Config) (propgrid.CollapseStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	sc := config.Storage

	switch sc.Backend {
	case propgrid.BackendMemory:
		return internal.NewMemoryStore(), nil

	case propgrid.BackendFile:
		return internal.NewFileStore(sc.FilePath), nil

	case propgrid.BackendPostgres:
		poolConfig, err := NewPostgresPoolConfig(ctx, sc.Postgres)
		if err != nil {
			return nil, err
		}
		store, err := internal.OpenPostgresStore(ctx, poolConfig, sc.Postgres.Table)
		if err != nil {
			return nil, err
		}
		return guard(store, sc), nil

	case propgrid.BackendSQL:
		store, err := internal.OpenSQLStore(ctx, sc.SQL.Driver, sc.SQL.DSN, sc.SQL.Table)
		if err != nil {
			return nil, err
		}
		if sc.SQL.Driver == "duckdb" {
			return store, nil
		}
		return guard(store, sc), nil

	case propgrid.BackendS3:
		client, err := NewS3Client(ctx, sc.S3)
		if err != nil {
			return nil, err
		}
		return guard(internal.NewS3Store(client, sc.S3.Bucket, sc.S3.Prefix), sc), nil
	}
	return nil, &propgrid.ConfigError{Field: "storage.backend", Message: "unknown backend " + sc.Backend}
}

func guard(store propgrid.CollapseStore, sc propgrid.StorageConfig) propgrid.CollapseStore {
	var breaker *internal.CircuitBreaker
	if sc.Resilience.Enabled {
		breaker = internal.NewCircuitBreaker(
			sc.Resilience.FailureThreshold,
			sc.Resilience.FailureWindow,
			sc.Resilience.OpenDuration,
		)
	}
	return internal.NewGuardedStore(store, sc.Backend, breaker, sc.Timeout)
}

// NewPostgresPoolConfig parses the configured DSN. With IAM auth the DSN is
// assembled from the endpoint and a fresh DSQL token is generated before
// every new connection.
func NewPostgresPoolConfig(ctx context.Context, pg propgrid.PostgresConfig) (*pgxpool.Config, error) {
	if !pg.IAMAuth {
		poolConfig, err := pgxpool.ParseConfig(pg.DSN)
		if err != nil {
			return nil, &propgrid.ConfigError{Field: "storage.postgres.dsn", Message: err.Error()}
		}
		return poolConfig, nil
	}

	user := pg.User
	if user == "" {
		user = "admin"
	}
	database := pg.Database
	if database == "" {
		database = "postgres"
	}
	port := pg.Port
	if port == 0 {
		port = 5432
	}
	dsn := fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=require",
		url.User(user).String(), pg.Endpoint, port, url.PathEscape(database))
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &propgrid.ConfigError{Field: "storage.postgres.endpoint", Message: err.Error()}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(pg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := fmt.Sprintf("%s:%d", pg.Endpoint, port)
	poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		token, err := dsqlToken(ctx, user, endpoint, awsCfg)
		if err != nil {
			zap.S().Warnw("failed to generate IAM auth token", "endpoint", endpoint, "err", err)
			return propgrid.NewStorageError("generate IAM auth token", err)
		}
		cc.Password = token
		return nil
	}
	return poolConfig, nil
}

func dsqlToken(ctx context.Context, user, endpoint string, awsCfg aws.Config) (string, error) {
	if user == "admin" {
		return auth.GenerateDBConnectAdminAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
	}
	return auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
}

// NewS3Client builds an S3 client from the default AWS chain. Static keys
// and a custom endpoint (MinIO, RustFS) override the chain when set.
func NewS3Client(ctx context.Context, sc propgrid.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if sc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(sc.Region))
	}
	if sc.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, "")))
	}
	if sc.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(sc.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = sc.UsePathStyle
	}), nil
}

func builderOptions(config *propgrid.Config, resolver propgrid.TypeResolver) internal.BuilderOptions {
	return internal.BuilderOptions{
		Resolver:         resolver,
		ValueComposition: config.Builder.ValueComposition,
		TypedObjects:     config.Builder.TypedObjects,
	}
}

// NewTreeBuilder returns the builder for format. FormatAuto is not accepted
// here since detection needs the document; use BuildFile instead. A nil
// resolver means the built-in type registry.
func NewTreeBuilder(config *propgrid.Config, format string, resolver propgrid.TypeResolver) (TreeBuilder, error) {
	return internal.NewTreeBuilder(format, builderOptions(config, resolver))
}

// BuildFile reads and builds the document at path using config.Builder.
func BuildFile(config *propgrid.Config, path string, resolver propgrid.TypeResolver) (*propgrid.ComposedProperty, error) {
	return internal.BuildFile(path, config.Builder.Format, builderOptions(config, resolver))
}

// WatchFile rebuilds the document at path on every change and passes the new
// tree to apply. It blocks until ctx is done.
func WatchFile(ctx context.Context, config *propgrid.Config, path string, resolver propgrid.TypeResolver, apply func(*propgrid.ComposedProperty)) error {
	watcher, err := internal.NewDocumentWatcher(path, config.Builder.WatchDebounce, func(p string) (*propgrid.ComposedProperty, error) {
		return BuildFile(config, p, resolver)
	})
	if err != nil {
		return err
	}
	defer watcher.Close()
	return watcher.Run(ctx, apply)
}

// NewRowModel creates a row model configured by config.Projection.
func NewRowModel(config *propgrid.Config, opts ...propgrid.RowModelOption) *propgrid.RowModel {
	pc := config.Projection
	base := []propgrid.RowModelOption{
		propgrid.WithCollapsedNames(propgrid.NewCollapsedNames(pc.CollapsedNames...)),
		propgrid.WithLeafIndentShift(pc.LeafIndentShift),
	}
	if pc.SnapshotCompositeFlag {
		base = append(base, propgrid.WithSnapshotCompositeFlag())
	}
	return propgrid.NewRowModel(append(base, opts...)...)
}

// NewLogger builds a zap logger from config.Logging.
func NewLogger(lc propgrid.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		return nil, &propgrid.ConfigError{Field: "logging.level", Message: err.Error()}
	}

	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	switch lc.Format {
	case "", "json":
		zc.Encoding = "json"
	case "console":
		zc.Encoding = "console"
	default:
		return nil, &propgrid.ConfigError{Field: "logging.format", Message: "must be json or console"}
	}
	return zc.Build()
}
