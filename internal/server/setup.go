package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/api"
	"github.com/JakeFAU/linkvault/internal/browser"
	"github.com/JakeFAU/linkvault/internal/config"
	contentmem "github.com/JakeFAU/linkvault/internal/content/memory"
	contentpg "github.com/JakeFAU/linkvault/internal/content/postgres"
	"github.com/JakeFAU/linkvault/internal/enrichment"
	collyfetcher "github.com/JakeFAU/linkvault/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/linkvault/internal/fetcher/headless"
	"github.com/JakeFAU/linkvault/internal/httpx"
	"github.com/JakeFAU/linkvault/internal/parser"
	"github.com/JakeFAU/linkvault/internal/pipeline"
	queuemem "github.com/JakeFAU/linkvault/internal/queue/memory"
	pubsubqueue "github.com/JakeFAU/linkvault/internal/queue/pubsub"
	redisqueue "github.com/JakeFAU/linkvault/internal/queue/redis"
	"github.com/JakeFAU/linkvault/internal/screenshot"
	gcsstorage "github.com/JakeFAU/linkvault/internal/storage/gcs"
	storagemem "github.com/JakeFAU/linkvault/internal/storage/memory"
	s3storage "github.com/JakeFAU/linkvault/internal/storage/s3"
)

var errBrowserDisabled = errors.New("browser disabled by configuration")

func setupBroker(ctx context.Context, app *App) error {
	qcfg := app.cfg.Queue
	switch qcfg.Backend {
	case config.BackendPubSub:
		broker, err := pubsubqueue.New(ctx, qcfg.PubSub.ProjectID, app.logger)
		if err != nil {
			return fmt.Errorf("pubsub broker init failed: %w", err)
		}
		app.broker = broker
		app.onClose(func(context.Context) error { return broker.Close() })
		if qcfg.PubSub.EnsureQueues {
			for _, name := range []string{enrichment.QueueScreenshot, enrichment.QueueTags} {
				if err := broker.EnsureQueue(ctx, name); err != nil {
					return fmt.Errorf("ensure queue %s: %w", name, err)
				}
			}
		}
		app.logger.Info("using Pub/Sub queue backend", zap.String("project", qcfg.PubSub.ProjectID))
	case config.BackendRedis:
		broker, err := redisqueue.New(ctx, redisqueue.Config{
			Addr:         qcfg.Redis.Addr,
			Password:     qcfg.Redis.Password,
			DB:           qcfg.Redis.DB,
			Prefix:       qcfg.Redis.Prefix,
			ConsumerID:   qcfg.Redis.ConsumerID,
			HeartbeatTTL: qcfg.Redis.HeartbeatTTL,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("redis broker init failed: %w", err)
		}
		app.broker = broker
		app.onClose(func(context.Context) error { return broker.Close() })
		app.checks = append(app.checks, api.Check{Name: "redis", Check: broker.Ping})
		app.logger.Info("using Redis queue backend", zap.String("addr", qcfg.Redis.Addr))
	default:
		broker := queuemem.New(qcfg.Capacity, app.logger)
		app.broker = broker
		app.onClose(func(context.Context) error { return broker.Close() })
		app.logger.Info("using in-memory queue backend", zap.Int("capacity", qcfg.Capacity))
	}
	return nil
}

func setupStore(ctx context.Context, app *App) error {
	dbcfg := app.cfg.Database
	if dbcfg.DSN == "" {
		app.logger.Warn("no DSN specified for database, using in-memory content store")
		app.store = contentmem.NewStore()
		return nil
	}
	store, err := contentpg.NewStore(ctx, contentpg.Config{
		DSN:             dbcfg.DSN,
		Table:           dbcfg.Table,
		MaxConns:        dbcfg.MaxConns,
		MinConns:        dbcfg.MinConns,
		MaxConnLifetime: dbcfg.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("content store init failed: %w", err)
	}
	app.store = store
	app.onClose(func(context.Context) error {
		store.Close()
		return nil
	})
	if dbcfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("content store migrate failed: %w", err)
		}
	}
	app.checks = append(app.checks, api.Check{Name: "postgres", Check: store.Ping})
	app.logger.Info("content store initialized", zap.String("table", dbcfg.Table))
	return nil
}

func setupUploader(ctx context.Context, app *App) error {
	scfg := app.cfg.Storage
	switch scfg.Backend {
	case config.BackendGCS:
		uploader, err := gcsstorage.Open(ctx, gcsstorage.Config{
			Bucket:     scfg.Bucket,
			Prefix:     scfg.Prefix,
			PublicBase: scfg.PublicBase,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("gcs uploader init failed: %w", err)
		}
		app.uploader = uploader
		app.onClose(func(context.Context) error { return uploader.Close() })
		app.logger.Info("using GCS storage backend", zap.String("bucket", scfg.Bucket))
	case config.BackendS3:
		uploader, err := s3storage.New(ctx, s3storage.Config{
			Endpoint:        scfg.S3.Endpoint,
			Region:          scfg.S3.Region,
			Bucket:          scfg.Bucket,
			Prefix:          scfg.Prefix,
			AccessKeyID:     scfg.S3.AccessKeyID,
			SecretAccessKey: scfg.S3.SecretAccessKey,
			UsePathStyle:    scfg.S3.UsePathStyle,
			PublicBase:      scfg.PublicBase,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("s3 uploader init failed: %w", err)
		}
		app.uploader = uploader
		app.logger.Info("using S3 storage backend", zap.String("bucket", scfg.Bucket))
	default:
		app.uploader = storagemem.NewUploader(scfg.Prefix)
		app.logger.Info("using in-memory storage backend")
	}
	return nil
}

// setupBrowser builds the shared browser manager. When the browser is
// disabled every launch fails as service-unavailable, so browser-backed
// strategies and screenshots report a clean failure per job.
func setupBrowser(app *App) {
	bcfg := app.cfg.Browser
	var launcher browser.Launcher
	if bcfg.Enabled {
		launcher = browser.NewChromedpLauncher(browser.ChromedpConfig{
			ExecPath:  bcfg.ExecPath,
			RemoteURL: bcfg.RemoteURL,
			Headless:  bcfg.Headless,
			NoSandbox: bcfg.NoSandbox,
			IdleGrace: bcfg.IdleGrace,
		})
		app.logger.Info("headless browser enabled",
			zap.Bool("headless", bcfg.Headless),
			zap.Bool("remote", bcfg.RemoteURL != ""),
		)
	} else {
		launcher = browser.LauncherFunc(func(context.Context) (browser.Browser, error) {
			return nil, enrichment.ServiceUnavailable("launch browser", errBrowserDisabled)
		})
		app.logger.Warn("headless browser disabled, screenshots and rendered fallbacks will fail")
	}
	app.browsers = browser.NewManager(launcher, app.logger)
	app.onClose(app.browsers.Shutdown)
}

type enrichmentDeps struct {
	capturer  *screenshot.Capturer
	generator *pipeline.Generator
}

func setupEnrichment(ctx context.Context, app *App) (enrichmentDeps, error) {
	pcfg := app.cfg.Parser
	bcfg := app.cfg.Browser

	httpCfg := httpx.DefaultConfig()
	httpCfg.MaxRetries = pcfg.MaxRetries
	httpCfg.RequestsPerSecond = pcfg.RequestsPerSecond
	httpCfg.Burst = pcfg.Burst
	client := httpx.NewClient(httpCfg, pcfg.HTTPTimeout)

	pages := collyfetcher.New(collyfetcher.Config{
		UserAgent: pcfg.UserAgent,
		Timeout:   pcfg.HTTPTimeout,
		Transport: httpx.NewTransport(nil, httpCfg),
	})
	navigator := headlessfetcher.New(headlessfetcher.Config{
		NavigationTimeout: bcfg.NavTimeout,
		MaxAttempts:       bcfg.MaxAttempts,
		BaseDelay:         bcfg.BaseDelay,
	}, app.logger)

	youtube, err := parser.NewYouTube(ctx, parser.YouTubeConfig{
		APIKey:     pcfg.YouTubeAPIKey,
		Endpoint:   pcfg.YouTubeEndpoint,
		HTTPClient: client,
	})
	if err != nil {
		return enrichmentDeps{}, fmt.Errorf("youtube strategy init failed: %w", err)
	}
	if pcfg.YouTubeAPIKey == "" {
		app.logger.Warn("no YouTube API key configured, YouTube links will fall back to rendering")
	}

	chain := parser.NewDefaultChain(parser.Strategies{
		GitHub:    parser.NewGitHub(client, pcfg.GitHubAPIBase),
		Instagram: parser.NewInstagram(pages, pcfg.InstagramBase, app.logger),
		YouTube:   youtube,
		LinkedIn:  parser.NewLinkedIn(pages),
		Twitter:   parser.NewTwitter(app.browsers, navigator),
		Generic:   parser.NewGeneric(pages),
	}, app.logger)

	return enrichmentDeps{
		capturer:  screenshot.NewCapturer(app.browsers, navigator, client, app.logger),
		generator: pipeline.NewGenerator(chain, app.browsers, navigator, app.cfg.Tags.MaxTags, app.logger),
	}, nil
}
