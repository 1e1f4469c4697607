package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
	"github.com/noah-isme/dropout-copilot-api/pkg/config"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

// MLClient calls the external dropout prediction service.
type MLClient struct {
	baseURL string
	client  *http.Client
}

func NewMLClient(cfg config.MLConfig) *MLClient {
	return &MLClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Predict scores one student. Any transport or decoding failure is a
// recoverable upstream-tool error carrying a 502.
func (c *MLClient) Predict(ctx context.Context, req models.MLPredictRequest) (*models.MLPredictResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamTool.Code, appErrors.ErrUpstreamTool.Status, "encode prediction request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamTool.Code, appErrors.ErrUpstreamTool.Status, "build prediction request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamTool.Code, appErrors.ErrUpstreamTool.Status, "prediction service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, appErrors.Clone(appErrors.ErrUpstreamTool, fmt.Sprintf("prediction service returned %d", resp.StatusCode))
	}

	var result models.MLPredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamTool.Code, appErrors.ErrUpstreamTool.Status, "decode prediction response")
	}
	return &result, nil
}
