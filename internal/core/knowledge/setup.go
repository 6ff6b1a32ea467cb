package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/markdave123-py/doctrinekb/internal/core"
)

// PostgresParams are the connection arguments MindsDB uses to reach the
// chunk store.
type PostgresParams struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// PostgresParamsFromURL extracts connection arguments from a postgres:// URL.
// hostOverride replaces the host when MindsDB reaches the database under a
// different name (a compose service, for instance).
func PostgresParamsFromURL(raw, hostOverride string) (PostgresParams, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return PostgresParams{}, &core.ConfigurationError{Field: "DATABASE_URL", Reason: "must be a postgres:// URL for knowledge base setup"}
	}

	p := PostgresParams{
		Host:     u.Hostname(),
		Port:     5432,
		Database: strings.TrimPrefix(u.Path, "/"),
		User:     u.User.Username(),
	}
	p.Password, _ = u.User.Password()
	if port := u.Port(); port != "" {
		if p.Port, err = strconv.Atoi(port); err != nil {
			return PostgresParams{}, &core.ConfigurationError{Field: "DATABASE_URL", Reason: "has an invalid port"}
		}
	}
	if hostOverride != "" {
		p.Host = hostOverride
	}
	if p.Host == "" || p.Database == "" {
		return PostgresParams{}, &core.ConfigurationError{Field: "DATABASE_URL", Reason: "needs a host and a database name"}
	}
	return p, nil
}

// SetupOptions describe the objects created inside MindsDB.
//
// StorageDatabase:  name of the pgvector integration (default military_psql).
// EmbeddingBaseURL: Ollama endpoint as seen from MindsDB (default http://ollama:11434).
// EmbeddingModel:   Ollama embedding model (default nomic-embed-text).
type SetupOptions struct {
	Postgres         PostgresParams
	StorageDatabase  string
	EmbeddingBaseURL string
	EmbeddingModel   string
}

func (o *SetupOptions) withDefaults() {
	if o.StorageDatabase == "" {
		o.StorageDatabase = "military_psql"
	}
	if o.EmbeddingBaseURL == "" {
		o.EmbeddingBaseURL = "http://ollama:11434"
	}
	if o.EmbeddingModel == "" {
		o.EmbeddingModel = "nomic-embed-text"
	}
}

// Setup waits for MindsDB, registers the chunk store and creates the
// knowledge base over military_doctrines. Both statements are idempotent.
func (c *MindsDBClient) Setup(ctx context.Context, opts SetupOptions) error {
	opts.withDefaults()

	if err := c.waitReady(ctx); err != nil {
		return err
	}

	params, err := json.Marshal(opts.Postgres)
	if err != nil {
		return fmt.Errorf("marshal connection params: %w", err)
	}
	createDB := fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS %s WITH ENGINE = 'pgvector', PARAMETERS = %s",
		opts.StorageDatabase, params)
	if _, err := c.Query(ctx, createDB); err != nil {
		return fmt.Errorf("register chunk store: %w", err)
	}
	c.logger.Info("chunk store registered", "database", opts.StorageDatabase)

	embedding, err := json.Marshal(map[string]string{
		"provider":   "ollama",
		"model_name": opts.EmbeddingModel,
		"base_url":   opts.EmbeddingBaseURL,
	})
	if err != nil {
		return fmt.Errorf("marshal embedding model: %w", err)
	}
	createKB := fmt.Sprintf(
		"CREATE KNOWLEDGE_BASE IF NOT EXISTS %s.%s USING embedding_model = %s, "+
			"storage = %s.storage_table, metadata_columns = ['country', 'warfare_type'], "+
			"content_columns = ['chunk'], id_column = 'doc_id'",
		c.project, c.kbName, embedding, opts.StorageDatabase)
	if _, err := c.Query(ctx, createKB); err != nil {
		return fmt.Errorf("create knowledge base: %w", err)
	}
	c.logger.Info("knowledge base ready", "name", c.kbName, "project", c.project)
	return nil
}

// waitReady retries a trivial query until MindsDB answers.
func (c *MindsDBClient) waitReady(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.connectAttempts; attempt++ {
		if _, lastErr = c.Query(ctx, "SHOW DATABASES"); lastErr == nil {
			c.logger.Info("connected to knowledge base server", "url", c.baseURL)
			return nil
		}
		if attempt == c.connectAttempts {
			break
		}
		c.logger.Warn("knowledge base server not ready, retrying",
			"attempt", attempt, "delay", c.connectDelay, "error", lastErr)

		t := time.NewTimer(c.connectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("connect after %d attempts: %w", c.connectAttempts, lastErr)
}
