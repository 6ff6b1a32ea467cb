// Package knowledge talks to the MindsDB server that embeds the chunk store
// and answers questions over it.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markdave123-py/doctrinekb/internal/config"
	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

var _ core.KnowledgeBase = (*MindsDBClient)(nil)

// ErrKnowledgeBase wraps every failure reported by the MindsDB server.
var ErrKnowledgeBase = errors.New("knowledge base error")

type MindsDBClient struct {
	baseURL    string
	project    string
	agent      string
	kbName     string
	httpClient *http.Client
	logger     *slog.Logger

	connectAttempts int
	connectDelay    time.Duration
}

func NewMindsDBClient(cfg *config.Config, logger *slog.Logger) *MindsDBClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &MindsDBClient{
		baseURL:         strings.TrimRight(cfg.KBBaseURL, "/"),
		project:         cfg.KBProject,
		agent:           cfg.KBAgent,
		kbName:          cfg.KBName,
		httpClient:      &http.Client{Timeout: cfg.KBTimeoutDuration()},
		logger:          logger,
		connectAttempts: 3,
		connectDelay:    5 * time.Second,
	}
}

type completionMessage struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
}

type completionRequest struct {
	Messages []completionMessage `json:"messages"`
}

type completionResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Ask sends one question to the doctrine agent and returns its answer.
func (c *MindsDBClient) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is empty", core.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/api/projects/%s/agents/%s/completions",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(c.agent))
	req := completionRequest{Messages: []completionMessage{{Question: question}}}

	var resp completionResponse
	if err := c.postJSON(ctx, endpoint, req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// QueryResult is the tabular answer of the SQL API.
type QueryResult struct {
	Type         string   `json:"type"`
	ColumnNames  []string `json:"column_names"`
	Data         [][]any  `json:"data"`
	ErrorMessage string   `json:"error_message"`
}

// Rows returns the result as column-name keyed maps.
func (r *QueryResult) Rows() []map[string]any {
	out := make([]map[string]any, 0, len(r.Data))
	for _, row := range r.Data {
		m := make(map[string]any, len(r.ColumnNames))
		for i, name := range r.ColumnNames {
			if i < len(row) {
				m[name] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

type queryRequest struct {
	Query   string            `json:"query"`
	Context map[string]string `json:"context,omitempty"`
}

// Query runs a statement through the SQL API in the configured project.
func (c *MindsDBClient) Query(ctx context.Context, sql string) (*QueryResult, error) {
	req := queryRequest{Query: sql, Context: map[string]string{"db": c.project}}

	var res QueryResult
	if err := c.postJSON(ctx, c.baseURL+"/api/sql/query", req, &res); err != nil {
		return nil, err
	}
	if res.Type == "error" {
		return nil, fmt.Errorf("%w: %s", ErrKnowledgeBase, res.ErrorMessage)
	}
	return &res, nil
}

// Search runs a semantic search against the knowledge base table.
func (c *MindsDBClient) Search(ctx context.Context, question, country string, limit int) ([]models.SearchHit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", core.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, chunk_content, metadata, relevance FROM %s.%s WHERE content = %s",
		c.project, c.kbName, quote(question))
	if country != "" {
		fmt.Fprintf(&b, " AND country = %s", quote(country))
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)

	res, err := c.Query(ctx, b.String())
	if err != nil {
		return nil, err
	}

	hits := make([]models.SearchHit, 0, len(res.Data))
	for _, row := range res.Rows() {
		hit := models.SearchHit{
			ID:      str(row["id"]),
			Content: str(row["chunk_content"]),
		}
		if rel, ok := row["relevance"].(float64); ok {
			hit.Relevance = rel
		}
		meta := metadata(row["metadata"])
		hit.Country = meta["country"]
		hit.WarfareType = meta["warfare_type"]
		hits = append(hits, hit)
	}
	return hits, nil
}

func (c *MindsDBClient) postJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKnowledgeBase, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", ErrKnowledgeBase, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrKnowledgeBase, err)
	}
	return nil
}

// quote renders s as a single-quoted SQL literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// metadata accepts the metadata column as either a JSON object or its
// string encoding.
func metadata(v any) map[string]string {
	out := map[string]string{}
	var raw map[string]any
	switch m := v.(type) {
	case map[string]any:
		raw = m
	case string:
		_ = json.Unmarshal([]byte(m), &raw)
	}
	for k, val := range raw {
		if val != nil {
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
