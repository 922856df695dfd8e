// Package bootstrap provides dependency initialization for the service.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/kunkakamikasa/ffmpeg-service/internal/artifact"
	"github.com/kunkakamikasa/ffmpeg-service/internal/compose"
	"github.com/kunkakamikasa/ffmpeg-service/internal/config"
	"github.com/kunkakamikasa/ffmpeg-service/internal/encode"
	"github.com/kunkakamikasa/ffmpeg-service/internal/fetch"
	"github.com/kunkakamikasa/ffmpeg-service/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Composer *compose.Composer
	Store    *artifact.Store
}

// NewDependencies creates and initializes all dependencies for the
// application. A missing encoder binary fails here, before the service
// accepts any jobs.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	temp, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create temp storage: %w", err)
	}

	executor, err := encode.NewExecutor(cfg.FFmpegPath, cfg.FFprobePath, cfg.MaxLogBytes)
	if err != nil {
		return nil, fmt.Errorf("create encoder executor: %w", err)
	}

	store, err := initStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewFetcher(temp, cfg.FetchTimeout, cfg.MaxRedirects)
	composer := compose.NewComposer(fetcher, executor, store, temp, logger)

	return &Dependencies{
		Composer: composer,
		Store:    store,
	}, nil
}

// initStore creates the artifact store, with S3 publication when configured.
func initStore(cfg *config.Config, logger *slog.Logger) (*artifact.Store, error) {
	var opts []artifact.Option
	if cfg.S3Enabled() {
		uploader, err := artifact.NewS3Uploader(artifact.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 uploader: %w", err)
		}
		opts = append(opts, artifact.WithUploader(uploader))
		logger.Info("S3 publication configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
	}

	store, err := artifact.NewStore(cfg.OutputDir, cfg.PublicBaseURL, cfg.FilesPrefix, opts...)
	if err != nil {
		return nil, fmt.Errorf("create artifact store: %w", err)
	}
	logger.Info("artifact store configured",
		slog.String("output_dir", store.OutputDir()),
		slog.String("prefix", store.PathPrefix()),
	)
	return store, nil
}
