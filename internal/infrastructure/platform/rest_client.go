// Package platform provides HTTP clients for the platforms the engine
// synchronizes with, plus the registry that resolves them per route. All
// platforms expose the same REST conventions; per-platform differences are
// confined to configuration.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retailops/backend/internal/domain/sync"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// RESTClient implements the platform client port over a JSON REST API.
type RESTClient struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewRESTClient creates a REST platform client with the given configuration
func NewRESTClient(config *ClientConfig) (*RESTClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RESTClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Platform returns the platform this client talks to
func (c *RESTClient) Platform() sync.Platform {
	return c.config.Platform
}

// entityPath maps an entity type to its collection path segment
func entityPath(entityType sync.EntityType) string {
	return strings.ToLower(string(entityType)) + "s"
}

// restEntity is the wire shape of one entity
type restEntity struct {
	ID         string         `json:"id"`
	ModifiedAt time.Time      `json:"modified_at"`
	Fields     map[string]any `json:"fields"`
}

// restPage is the wire shape of one page of entities
type restPage struct {
	Items      []restEntity `json:"items"`
	NextCursor string       `json:"next_cursor"`
}

// FetchEntity retrieves a single entity by id
func (c *RESTClient) FetchEntity(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, id string) (*sync.RawEntity, error) {
	path := fmt.Sprintf("/api/v1/%s/%s", entityPath(entityType), url.PathEscape(id))

	var out restEntity
	if err := c.do(ctx, tenantID, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return c.toRaw(entityType, out), nil
}

// FetchPage retrieves one page of entities; an empty next cursor ends the scan
func (c *RESTClient) FetchPage(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, cursor string, filters sync.FetchFilters) ([]sync.RawEntity, string, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if len(filters.IDs) > 0 {
		query.Set("ids", strings.Join(filters.IDs, ","))
	}
	if filters.ModifiedAfter != nil {
		query.Set("modified_after", filters.ModifiedAfter.UTC().Format(time.RFC3339))
	}
	if filters.CreatedFrom != nil {
		query.Set("created_from", filters.CreatedFrom.UTC().Format(time.RFC3339))
	}
	if filters.CreatedTo != nil {
		query.Set("created_to", filters.CreatedTo.UTC().Format(time.RFC3339))
	}

	path := "/api/v1/" + entityPath(entityType)
	var out restPage
	if err := c.do(ctx, tenantID, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, "", err
	}

	entities := make([]sync.RawEntity, 0, len(out.Items))
	for _, item := range out.Items {
		entities = append(entities, *c.toRaw(entityType, item))
	}
	return entities, out.NextCursor, nil
}

// FindByNaturalKey locates an entity by a natural key such as email or SKU
func (c *RESTClient) FindByNaturalKey(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, key, value string) (*sync.RawEntity, error) {
	query := url.Values{}
	query.Set("key", key)
	query.Set("value", value)

	path := "/api/v1/" + entityPath(entityType) + "/lookup"
	var out restEntity
	if err := c.do(ctx, tenantID, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return c.toRaw(entityType, out), nil
}

// Create creates an entity and returns its id on the platform
func (c *RESTClient) Create(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, payload map[string]any) (string, error) {
	path := "/api/v1/" + entityPath(entityType)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, tenantID, http.MethodPost, path, nil, payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("platform: %s returned no id for created %s", c.config.Platform, entityType)
	}
	return out.ID, nil
}

// Update overwrites an existing entity
func (c *RESTClient) Update(ctx context.Context, tenantID uuid.UUID, entityType sync.EntityType, id string, payload map[string]any) error {
	path := fmt.Sprintf("/api/v1/%s/%s", entityPath(entityType), url.PathEscape(id))
	return c.do(ctx, tenantID, http.MethodPut, path, nil, payload, nil)
}

// toRaw converts a wire entity to the domain representation
func (c *RESTClient) toRaw(entityType sync.EntityType, e restEntity) *sync.RawEntity {
	fields := e.Fields
	if fields == nil {
		fields = make(map[string]any)
	}
	return &sync.RawEntity{
		ID:         e.ID,
		EntityType: entityType,
		Fields:     fields,
		ModifiedAt: e.ModifiedAt,
	}
}

// do executes one request and decodes the response into out when non-nil.
// Failures are classified so the orchestrator can tell retryable ones apart.
func (c *RESTClient) do(ctx context.Context, tenantID uuid.UUID, method, path string, query url.Values, body any, out any) error {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("platform: failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("platform: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Tenant-ID", tenantID.String())
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}
	if c.config.APISecret != "" {
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("X-Timestamp", timestamp)
		req.Header.Set("X-Signature", c.config.Sign(method, path, timestamp))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network level failures are worth retrying
		return sync.NewTransientError(c.config.Platform, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return sync.NewTransientError(c.config.Platform, err)
	}

	if err := c.classifyStatus(resp.StatusCode, data); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("platform: %s returned malformed response: %w", c.config.Platform, err)
		}
	}
	return nil
}

// classifyStatus maps an HTTP status to the domain error kinds
func (c *RESTClient) classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return sync.NewAuthError(c.config.Platform, fmt.Errorf("status %d: %s", status, truncate(body)))
	case status == http.StatusNotFound:
		return sync.ErrEntityNotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return sync.NewTransientError(c.config.Platform, fmt.Errorf("status %d: %s", status, truncate(body)))
	default:
		return fmt.Errorf("platform: %s request failed with status %d: %s", c.config.Platform, status, truncate(body))
	}
}

// truncate bounds an error body for log and error messages
func truncate(body []byte) string {
	const limit = 256
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Ensure RESTClient implements the platform client port
var _ sync.PlatformClient = (*RESTClient)(nil)
