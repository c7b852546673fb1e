package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/syncerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QonicClient implements SourceClient against the Qonic REST API.
//
// The locations endpoint returns the whole spatial tree in one response, so
// the client fetches it once per process and serves GetLocation from the
// flattened map; the tree does not change mid-pass.
type QonicClient struct {
	baseURL    string
	projectID  string
	modelID    string
	tokens     TokenSource
	httpClient *http.Client
	sessionID  string
	logger     *zap.Logger

	mu        sync.Mutex
	locations map[string]*model.SourceLocation
}

var _ SourceClient = (*QonicClient)(nil)

// QonicConfig holds the Qonic client configuration.
type QonicConfig struct {
	BaseURL   string
	ProjectID string
	ModelID   string
	Timeout   time.Duration
}

// NewQonicClient creates a Qonic API client.
func NewQonicClient(cfg QonicConfig, tokens TokenSource, logger *zap.Logger) *QonicClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &QonicClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		projectID:  cfg.ProjectID,
		modelID:    cfg.ModelID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		sessionID:  uuid.New().String(),
		logger:     logger,
	}
}

// qonicLocationView mirrors the nested tree shape of the locations endpoint.
type qonicLocationView struct {
	Name       string `json:"name"`
	Properties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"properties"`
	Children []qonicLocationView `json:"children"`
}

func (v *qonicLocationView) guid() string {
	for _, p := range v.Properties {
		if p.Name == "Guid" {
			return p.Value
		}
	}
	return ""
}

// GetLocation resolves one spatial location by GUID.
func (c *QonicClient) GetLocation(ctx context.Context, id string) (*model.SourceLocation, error) {
	locations, err := c.locationMap(ctx)
	if err != nil {
		return nil, err
	}

	loc, ok := locations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", syncerr.ErrLocationNotFound, id)
	}
	return loc, nil
}

// locationMap fetches and flattens the spatial tree on first use.
func (c *QonicClient) locationMap(ctx context.Context) (map[string]*model.SourceLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locations != nil {
		return c.locations, nil
	}

	var response struct {
		LocationViews []qonicLocationView `json:"locationViews"`
	}
	path := fmt.Sprintf("projects/%s/locations", c.projectID)
	if err := c.get(ctx, path, &response); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	locations := make(map[string]*model.SourceLocation)
	var flatten func(views []qonicLocationView, parentGUID string)
	flatten = func(views []qonicLocationView, parentGUID string) {
		for i := range views {
			view := &views[i]
			guid := view.guid()
			if guid != "" {
				props := make(map[string]string, len(view.Properties))
				for _, p := range view.Properties {
					props[p.Name] = p.Value
				}
				locations[guid] = &model.SourceLocation{
					GUID:       guid,
					Name:       view.Name,
					ParentGUID: parentGUID,
					Properties: props,
				}
			}
			flatten(view.Children, guid)
		}
	}
	flatten(response.LocationViews, "")

	c.logger.Info("Loaded source location tree",
		zap.String("project_id", c.projectID),
		zap.Int("locations", len(locations)))

	c.locations = locations
	return locations, nil
}

// ListCandidateAssets queries products and normalizes them into SourceAssets.
// Property filters are pushed to the server; classification-code selection
// happens here because Qonic has no server-side code filter.
func (c *QonicClient) ListCandidateAssets(ctx context.Context, filter model.AssetFilter) ([]*model.SourceAsset, error) {
	fields, err := c.availableFields(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"fields": fields}
	if len(filter.Properties) > 0 {
		payload["filters"] = filter.Properties
	}

	var response struct {
		Result []map[string]json.RawMessage `json:"result"`
	}
	path := fmt.Sprintf("projects/%s/models/%s/products/query", c.projectID, c.modelID)
	if err := c.post(ctx, path, payload, &response); err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	assets := make([]*model.SourceAsset, 0, len(response.Result))
	for _, raw := range response.Result {
		asset := normalizeProduct(raw, filter.Codes)
		if asset == nil {
			continue
		}
		assets = append(assets, asset)
	}

	c.logger.Info("Listed candidate assets",
		zap.Int("products", len(response.Result)),
		zap.Int("candidates", len(assets)))

	return assets, nil
}

func (c *QonicClient) availableFields(ctx context.Context) ([]string, error) {
	var response struct {
		Fields []string `json:"fields"`
	}
	path := fmt.Sprintf("projects/%s/models/%s/products/available-data", c.projectID, c.modelID)
	if err := c.get(ctx, path, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch available fields: %w", err)
	}
	return response.Fields, nil
}

// normalizeProduct extracts the typed fields the sync engine needs from a
// raw product record. Returns nil when the product carries no code matching
// codeFilter.
func normalizeProduct(raw map[string]json.RawMessage, codeFilter []string) *model.SourceAsset {
	asset := &model.SourceAsset{Properties: make(map[string]string)}

	for field, value := range raw {
		switch field {
		case "Guid":
			json.Unmarshal(value, &asset.GUID)
		case "Name":
			json.Unmarshal(value, &asset.Name)
		case "Code":
			asset.Code = pickCode(value, codeFilter)
		case "AssetId":
			asset.AssetID = propertyValue(value)
		case "SpatialLocation":
			var loc struct {
				SpatialLocationID string `json:"SpatialLocationId"`
			}
			json.Unmarshal(value, &loc)
			asset.LocationGUID = loc.SpatialLocationID
		default:
			if v := propertyValue(value); v != "" {
				asset.Properties[field] = v
			}
		}
	}

	if asset.GUID == "" || asset.Code == "" {
		return nil
	}
	return asset
}

// pickCode selects the product's classification code. With a filter, the
// first filtered code wins; without one, the first code present.
func pickCode(raw json.RawMessage, codeFilter []string) string {
	var codes map[string]struct {
		Identification string `json:"Identification"`
	}
	if err := json.Unmarshal(raw, &codes); err != nil {
		return ""
	}

	var found []string
	for _, c := range codes {
		if c.Identification != "" {
			found = append(found, c.Identification)
		}
	}
	if len(codeFilter) == 0 {
		if len(found) > 0 {
			return found[0]
		}
		return ""
	}
	for _, want := range codeFilter {
		for _, have := range found {
			if have == want {
				return have
			}
		}
	}
	return ""
}

// propertyValue unwraps Qonic's {"PropertySet": ..., "Value": ...} shape,
// falling back to bare scalars.
func propertyValue(raw json.RawMessage) string {
	var wrapped struct {
		Value string `json:"Value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Value != "" {
		return strings.TrimSpace(wrapped.Value)
	}
	var scalar string
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return strings.TrimSpace(scalar)
	}
	return ""
}

// qonicModification is the ExternalDataModification envelope: operation →
// field name → product GUID → value.
type qonicModification map[string]map[string]map[string]qonicFieldValue

type qonicFieldValue struct {
	PropertySet string `json:"PropertySet"`
	Value       string `json:"Value"`
}

// UpdateAssetLinks pushes Maximo identifiers back onto Qonic products in a
// single modification request.
func (c *QonicClient) UpdateAssetLinks(ctx context.Context, links []model.AssetLink) ([]WriteBackError, error) {
	if len(links) == 0 {
		return nil, nil
	}

	locationIDs := make(map[string]qonicFieldValue, len(links))
	assetIDs := make(map[string]qonicFieldValue, len(links))
	for _, link := range links {
		locationIDs[link.SourceGUID] = qonicFieldValue{PropertySet: "BAC", Value: link.TargetLocationID}
		assetIDs[link.SourceGUID] = qonicFieldValue{PropertySet: "BAC", Value: link.TargetAssetID}
	}
	modifications := qonicModification{
		"update": {
			"FunctionalLocationId": locationIDs,
			"AssetId":              assetIDs,
		},
	}

	var response struct {
		Errors []struct {
			Guid        string `json:"guid"`
			Field       string `json:"field"`
			Error       string `json:"error"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	path := fmt.Sprintf("projects/%s/models/%s/products", c.projectID, c.modelID)
	if err := c.post(ctx, path, modifications, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", syncerr.ErrSourceWriteBack, err)
	}

	var rejected []WriteBackError
	for _, e := range response.Errors {
		rejected = append(rejected, WriteBackError{
			SourceGUID: e.Guid,
			Field:      e.Field,
			Message:    strings.TrimSpace(e.Error + ": " + e.Description),
		})
	}
	return rejected, nil
}

func (c *QonicClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *QonicClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *QonicClient) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Client-Session-Id", c.sessionID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qonic returned %d for %s %s: %s", resp.StatusCode, method, path, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
