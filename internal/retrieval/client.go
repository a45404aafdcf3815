package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
)

// Client is a minimal LlamaCloud retrieval client. It resolves the managed
// index (pipeline) by name once, then answers free-text queries with the
// joined text of the top retrieved nodes.
type Client struct {
	cfg  config.LlamaCloudConfig
	http *http.Client
	log  *zap.Logger

	mu         sync.Mutex
	pipelineID string
}

func NewClient(cfg config.LlamaCloudConfig, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

type pipelineInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type retrieveRequest struct {
	Query string `json:"query"`
}

type retrieveResponse struct {
	RetrievalNodes []struct {
		Node struct {
			Text string `json:"text"`
		} `json:"node"`
		Score float64 `json:"score"`
	} `json:"retrieval_nodes"`
}

// Query retrieves the answer text for one question. When the index returns
// no nodes the answer is "Empty Response", matching the behavior of the
// managed query engine.
func (c *Client) Query(ctx context.Context, question string) (string, error) {
	pipelineID, err := c.resolvePipeline(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(retrieveRequest{Query: question})
	if err != nil {
		return "", fmt.Errorf("marshal retrieve request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/pipelines/%s/retrieve", strings.TrimRight(c.cfg.BaseURL, "/"), pipelineID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build retrieve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llamacloud retrieve: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("llamacloud retrieve: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode retrieve response: %w", err)
	}

	limit := c.cfg.TopK
	if limit <= 0 || limit > len(out.RetrievalNodes) {
		limit = len(out.RetrievalNodes)
	}
	texts := make([]string, 0, limit)
	for _, n := range out.RetrievalNodes[:limit] {
		if t := strings.TrimSpace(n.Node.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return "Empty Response", nil
	}
	return strings.Join(texts, "\n\n"), nil
}

// resolvePipeline looks up the pipeline ID for the configured index name and
// caches it for the life of the client.
func (c *Client) resolvePipeline(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipelineID != "" {
		return c.pipelineID, nil
	}

	q := url.Values{}
	q.Set("pipeline_name", c.cfg.IndexName)
	if c.cfg.ProjectName != "" {
		q.Set("project_name", c.cfg.ProjectName)
	}
	if c.cfg.Organization != "" {
		q.Set("organization_id", c.cfg.Organization)
	}
	endpoint := fmt.Sprintf("%s/api/v1/pipelines?%s", strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build pipelines request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llamacloud list pipelines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("llamacloud list pipelines: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var pipelines []pipelineInfo
	if err := json.NewDecoder(resp.Body).Decode(&pipelines); err != nil {
		return "", fmt.Errorf("decode pipelines response: %w", err)
	}
	for _, p := range pipelines {
		if p.Name == c.cfg.IndexName {
			c.pipelineID = p.ID
			c.log.Info("resolved retrieval index",
				zap.String("index", c.cfg.IndexName),
				zap.String("pipeline_id", p.ID))
			return c.pipelineID, nil
		}
	}
	return "", fmt.Errorf("llamacloud index %q not found", c.cfg.IndexName)
}
