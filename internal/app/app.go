package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/doctrinekb/internal/api/handlers"
	"github.com/markdave123-py/doctrinekb/internal/config"
	"github.com/markdave123-py/doctrinekb/internal/core"
	db "github.com/markdave123-py/doctrinekb/internal/core/database"
	"github.com/markdave123-py/doctrinekb/internal/core/ingestion_engine"
	"github.com/markdave123-py/doctrinekb/internal/core/knowledge"
	objectclient "github.com/markdave123-py/doctrinekb/internal/core/object-client"
	"github.com/markdave123-py/doctrinekb/internal/services"
)

type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	DBClient     *db.DatabaseClient
	ObjectClient *objectclient.S3Client
	Knowledge    *knowledge.MindsDBClient

	Documents *services.DocumentService
	Doctrines *services.DoctrineService
	Chat      *services.ChatService
	Personnel *services.PersonnelService

	Server *Server
}

// NewApp connects to the chunk store, optionally to object storage, and wires
// every service and handler.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("chunk store ready", "driver", dbClient.Driver())

	var (
		s3Client *objectclient.S3Client
		objects  core.ObjectClient
		lister   services.ObjectLister
	)
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		s3Client, err = objectclient.NewS3Client(appCtx, cfg, logger)
		if err != nil {
			_ = dbClient.Close()
			return nil, fmt.Errorf("object storage: %w", err)
		}
		objects, lister = s3Client, s3Client
	}

	ingestCfg := &ingestion_engine.IngestConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}
	if cfg.ArchiveEnabled() && s3Client != nil {
		ingestCfg.Bucket = cfg.BucketName
		logger.Info("archiving source documents", "bucket", cfg.BucketName, "region", cfg.AwsRegion)
	}

	extractor := ingestion_engine.NewExtractor(logger, false)
	ingestor, err := ingestion_engine.NewDocumentIngestor(dbClient, objects, extractor, ingestCfg, logger)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	kb := knowledge.NewMindsDBClient(cfg, logger)

	a := &App{
		Config:       cfg,
		Logger:       logger,
		DBClient:     dbClient,
		ObjectClient: s3Client,
		Knowledge:    kb,
		Documents:    services.NewDocumentService(ingestor, lister, logger),
		Doctrines:    services.NewDoctrineService(dbClient, cfg.CatalogTTLDuration()),
		Chat:         services.NewChatService(kb),
		Personnel:    services.NewPersonnelService(dbClient, logger),
	}

	a.Server = NewServer(cfg, Handlers{
		Documents: handlers.NewDocumentHandler(a.Documents, cfg.MaxUploadMB, logger),
		Doctrines: handlers.NewDoctrineHandler(a.Doctrines),
		Chat:      handlers.NewChatHandler(a.Chat, logger),
		Health:    handlers.NewHealthHandler(dbClient),
	}, logger)

	return a, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
