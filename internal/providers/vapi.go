// internal/providers/vapi.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"
)

// VapiClient talks to the VAPI voice API. Credentials arrive per call in a
// decrypted VapiConfig rather than being held on the client, so one client
// serves every user.
type VapiClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewVapiClient(baseURL string, timeout time.Duration) *VapiClient {
	return &VapiClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CallRequest describes one outbound voice call.
type CallRequest struct {
	CustomerNumber string
	CustomerName   string
	FirstMessage   string
}

type vapiCallResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StartCall launches an outbound call through the configured assistant.
func (c *VapiClient) StartCall(ctx context.Context, cfg *models.VapiConfig, call CallRequest) (*DispatchResult, error) {
	payload := map[string]interface{}{
		"assistantId":   cfg.AssistantID,
		"phoneNumberId": cfg.PhoneNumber,
		"customer": map[string]interface{}{
			"number": call.CustomerNumber,
			"name":   call.CustomerName,
		},
	}
	if call.FirstMessage != "" {
		payload["assistantOverrides"] = map[string]interface{}{
			"firstMessage": call.FirstMessage,
		}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	url := fmt.Sprintf("%s/call", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportErr("vapi", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderError("vapi", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderError("vapi", resp.StatusCode,
			fmt.Errorf("call creation failed: %s", string(body)))
	}

	var callResp vapiCallResponse
	if err := json.Unmarshal(body, &callResp); err != nil {
		return nil, errors.NewProviderError("vapi", resp.StatusCode, err)
	}

	return &DispatchResult{MessageID: callResp.ID, Status: callResp.Status}, nil
}

// TestConnection verifies the API key by fetching the configured assistant.
func (c *VapiClient) TestConnection(ctx context.Context, cfg *models.VapiConfig) error {
	url := fmt.Sprintf("%s/assistant/%s", c.baseURL, cfg.AssistantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportErr("vapi", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.NewProviderError("vapi", resp.StatusCode,
			fmt.Errorf("assistant lookup failed: %s", string(body)))
	}
	return nil
}
