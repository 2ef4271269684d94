// Package platform wraps the calling platform's assistant-configuration API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

// VapiClient applies assistant-level behavior settings over the platform's
// REST API with bearer-token authentication.
type VapiClient struct {
	baseURL     string
	apiKey      string
	assistantID string
	httpClient  *http.Client
}

// NewVapiClient creates a platform client.
func NewVapiClient(baseURL, apiKey, assistantID string) *VapiClient {
	return &VapiClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		assistantID: assistantID,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Configured reports whether the client has the credentials it needs.
func (c *VapiClient) Configured() bool {
	return c.apiKey != "" && c.assistantID != ""
}

// overlayPayload is the assistant behavior overlay: barge-in thresholds,
// voice-activity-detection aggressiveness, transcription provider/model,
// and latency mode.
type overlayPayload struct {
	StopSpeakingPlan struct {
		NumWords int `json:"numWords"`
	} `json:"stopSpeakingPlan"`
	StartSpeakingPlan struct {
		VADLevel string `json:"smartEndpointingPlan"`
	} `json:"startSpeakingPlan"`
	Transcriber struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	} `json:"transcriber"`
	LatencyMode string `json:"latencyMode"`
}

// ApplyOverlay applies the configured behavior overlay to the assistant with
// a PATCH, falling back to PUT when the platform rejects the method. Called
// at process boot and re-triggerable via the admin endpoint.
func (c *VapiClient) ApplyOverlay(ctx context.Context, cfg *config.Config) error {
	if !c.Configured() {
		return fmt.Errorf("platform API key or assistant id not configured")
	}

	var payload overlayPayload
	payload.StopSpeakingPlan.NumWords = cfg.OverlayBargeInWords
	payload.StartSpeakingPlan.VADLevel = cfg.OverlayVADAggressive
	payload.Transcriber.Provider = cfg.OverlayTranscriber
	payload.Transcriber.Model = cfg.OverlayTranscriberMdl
	payload.LatencyMode = cfg.OverlayLatencyMode

	path := fmt.Sprintf("/assistant/%s", c.assistantID)

	status, err := c.send(ctx, http.MethodPatch, path, payload)
	if err == nil && status < 300 {
		logger.Base().Info("assistant overlay applied",
			zap.String("assistant_id", c.assistantID), zap.String("method", "PATCH"))
		return nil
	}

	// Some deployments only accept full replacement.
	if status == http.StatusMethodNotAllowed || status == http.StatusNotFound || err != nil {
		logger.Base().Warn("PATCH overlay rejected, retrying with PUT",
			zap.Int("status", status), zap.Error(err))
		status, err = c.send(ctx, http.MethodPut, path, payload)
		if err == nil && status < 300 {
			logger.Base().Info("assistant overlay applied",
				zap.String("assistant_id", c.assistantID), zap.String("method", "PUT"))
			return nil
		}
	}

	if err != nil {
		return fmt.Errorf("failed to apply assistant overlay: %w", err)
	}
	return fmt.Errorf("failed to apply assistant overlay (status %d)", status)
}

func (c *VapiClient) send(ctx context.Context, method, path string, payload interface{}) (int, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal overlay: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		logger.Base().Debug("platform API response",
			zap.Int("status", resp.StatusCode), zap.String("body", string(bodyBytes)))
	}
	return resp.StatusCode, nil
}
