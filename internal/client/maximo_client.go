package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/syncerr"
	"go.uber.org/zap"
)

// MaximoError is a Maximo-specific API error with the reason and status
// codes the server reports in its JSON error payload.
type MaximoError struct {
	Message    string
	ReasonCode string
	StatusCode string
}

func (e *MaximoError) Error() string {
	return fmt.Sprintf("%s (Reason: %s, Status: %s)", e.Message, e.ReasonCode, e.StatusCode)
}

// MaximoClient implements TargetClient against the Maximo REST API using
// the bulk AddChange/Delete PATCH convention. Locations go through the
// QONIC_MXAPILOCATIONS object structure, which accepts the parent reference
// at creation time; assets go through MXAPIASSET.
type MaximoClient struct {
	baseURL    string
	apiKey     string
	siteID     string
	orgID      string
	systemID   string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ TargetClient = (*MaximoClient)(nil)

// MaximoConfig holds the Maximo client configuration.
type MaximoConfig struct {
	BaseURL  string
	APIKey   string
	SiteID   string
	OrgID    string
	SystemID string
	Timeout  time.Duration
}

// NewMaximoClient creates a Maximo API client.
func NewMaximoClient(cfg MaximoConfig, logger *zap.Logger) *MaximoClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &MaximoClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		apiKey:     cfg.APIKey,
		siteID:     cfg.SiteID,
		orgID:      cfg.OrgID,
		systemID:   cfg.SystemID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// bulkRecord is one element of a Maximo bulk PATCH request.
type bulkRecord struct {
	Data map[string]any `json:"_data"`
	Meta bulkMeta       `json:"_meta"`
}

type bulkMeta struct {
	Method    string `json:"method"`
	PatchType string `json:"patchtype"`
}

func bulkEnvelope(data map[string]any) []bulkRecord {
	return []bulkRecord{{
		Data: data,
		Meta: bulkMeta{Method: "PATCH", PatchType: "MERGE"},
	}}
}

// CreateLocation creates (or re-applies, Maximo AddChange is an upsert)
// one functional location with its parent assigned at creation time.
func (c *MaximoClient) CreateLocation(ctx context.Context, payload *model.LocationPayload) (string, error) {
	data := map[string]any{
		"_action":     "AddChange",
		"location":    payload.Location,
		"description": payload.Description,
		"siteid":      payload.SiteID,
		"orgid":       payload.OrgID,
		"type":        payload.Type,
		"children":    payload.HasChildren,
		"systemid":    payload.SystemID,
		"lochierarchy": []map[string]any{{
			"parent":   payload.Parent,
			"systemid": payload.SystemID,
		}},
	}

	response, err := c.postBulk(ctx, "QONIC_MXAPILOCATIONS", bulkEnvelope(data))
	if err != nil {
		return "", fmt.Errorf("%w: location %s: %v", syncerr.ErrTargetCreate, payload.Location, err)
	}

	targetID := response.stringField("location")
	if targetID == "" {
		targetID = payload.Location
	}

	c.logger.Debug("Created location in Maximo",
		zap.String("location", targetID),
		zap.String("parent", payload.Parent),
		zap.String("source_guid", payload.SourceGUID))

	return targetID, nil
}

// CreateAsset creates one asset. The returned id is the Maximo assetnum,
// generated server-side unless the payload carries one.
func (c *MaximoClient) CreateAsset(ctx context.Context, payload *model.AssetPayload) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: asset %s: %v", syncerr.ErrTargetCreate, payload.SourceGUID, err)
	}
	data := map[string]any{"_action": "AddChange"}
	if err := json.Unmarshal(encoded, &data); err != nil {
		return "", fmt.Errorf("%w: asset %s: %v", syncerr.ErrTargetCreate, payload.SourceGUID, err)
	}
	data["_action"] = "AddChange"

	response, err := c.postBulk(ctx, "MXAPIASSET", bulkEnvelope(data))
	if err != nil {
		return "", fmt.Errorf("%w: asset %s: %v", syncerr.ErrTargetCreate, payload.SourceGUID, err)
	}

	assetNum := response.stringField("assetnum")
	if assetNum == "" {
		return "", fmt.Errorf("%w: asset %s: no assetnum in response", syncerr.ErrTargetCreate, payload.SourceGUID)
	}

	c.logger.Debug("Created asset in Maximo",
		zap.String("assetnum", assetNum),
		zap.String("location", payload.Location),
		zap.String("source_guid", payload.SourceGUID))

	return assetNum, nil
}

// DeleteLocation deletes one functional location. Maximo rejects the call
// while children or referencing assets remain; the cleanup engine orders
// deletes so that does not normally happen.
func (c *MaximoClient) DeleteLocation(ctx context.Context, targetID string) error {
	data := map[string]any{
		"_action":  "Delete",
		"location": targetID,
		"siteid":   c.siteID,
		"orgid":    c.orgID,
	}
	if _, err := c.postBulk(ctx, "QONIC_MXAPILOCATIONS", bulkEnvelope(data)); err != nil {
		return fmt.Errorf("%w: location %s: %v", syncerr.ErrTargetDelete, targetID, err)
	}
	return nil
}

// DeleteAsset deletes one asset.
func (c *MaximoClient) DeleteAsset(ctx context.Context, targetID string) error {
	data := map[string]any{
		"_action":  "Delete",
		"assetnum": targetID,
		"siteid":   c.siteID,
		"orgid":    c.orgID,
	}
	if _, err := c.postBulk(ctx, "MXAPIASSET", bulkEnvelope(data)); err != nil {
		return fmt.Errorf("%w: asset %s: %v", syncerr.ErrTargetDelete, targetID, err)
	}
	return nil
}

// bulkResponse is the first _responsedata object of a bulk reply.
type bulkResponse map[string]json.RawMessage

func (r bulkResponse) stringField(name string) string {
	var v string
	json.Unmarshal(r[name], &v)
	return v
}

type maximoErrorPayload struct {
	Message    string `json:"message"`
	ReasonCode string `json:"reasonCode"`
	StatusCode string `json:"statusCode"`
}

// postBulk posts a bulk request and decodes the first response record,
// surfacing Maximo's embedded error object as *MaximoError.
func (c *MaximoClient) postBulk(ctx context.Context, object string, records []bulkRecord) (bulkResponse, error) {
	body, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := c.baseURL + object + "?" + url.Values{"lean": {"1"}, "apikey": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("lean", "1")
	req.Header.Set("properties", "*")
	req.Header.Set("x-method-override", "BULK")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &MaximoError{
			Message:    fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, object, truncate(string(data), 512)),
			StatusCode: fmt.Sprintf("%d", resp.StatusCode),
		}
	}

	return decodeBulkResponse(data)
}

// decodeBulkResponse handles both the list shape ([{_responsedata: {...}}])
// and the bare object shape Maximo uses for some endpoints.
func decodeBulkResponse(data []byte) (bulkResponse, error) {
	var records []struct {
		ResponseData bulkResponse `json:"_responsedata"`
	}
	if err := json.Unmarshal(data, &records); err == nil && len(records) > 0 {
		response := records[0].ResponseData
		if err := embeddedError(response); err != nil {
			return nil, err
		}
		return response, nil
	}

	var object bulkResponse
	if err := json.Unmarshal(data, &object); err != nil {
		// Non-JSON response; nothing to extract but not an error either.
		return bulkResponse{}, nil
	}
	if err := embeddedError(object); err != nil {
		return nil, err
	}
	return object, nil
}

func embeddedError(response bulkResponse) error {
	raw, ok := response["Error"]
	if !ok {
		return nil
	}
	var payload maximoErrorPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		payload.Message = "unknown Maximo error"
	}
	return &MaximoError{
		Message:    payload.Message,
		ReasonCode: payload.ReasonCode,
		StatusCode: payload.StatusCode,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
