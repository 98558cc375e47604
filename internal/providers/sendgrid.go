// internal/providers/sendgrid.go
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

// SendGridClient talks to the SendGrid v3 mail API.
type SendGridClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSendGridClient(baseURL string, timeout time.Duration) *SendGridClient {
	return &SendGridClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// EmailRequest describes one outbound email.
type EmailRequest struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// SendEmail sends one email. SendGrid answers 202 with the message id in the
// X-Message-Id header rather than in the body.
func (c *SendGridClient) SendEmail(ctx context.Context, cfg *models.SendGridConfig, email EmailRequest) (*DispatchResult, error) {
	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{
				"to": []map[string]string{
					{"email": email.To, "name": email.ToName},
				},
			},
		},
		"from": map[string]string{
			"email": cfg.FromEmail,
			"name":  cfg.FromName,
		},
		"subject": email.Subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": email.Body},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	endpoint := fmt.Sprintf("%s/v3/mail/send", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportErr("sendgrid", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewProviderError("sendgrid", resp.StatusCode,
			fmt.Errorf("mail send failed: %s", string(body)))
	}

	return &DispatchResult{
		MessageID: resp.Header.Get("X-Message-Id"),
		Status:    "accepted",
	}, nil
}

// TestConnection verifies the API key by fetching the account profile.
func (c *SendGridClient) TestConnection(ctx context.Context, cfg *models.SendGridConfig) error {
	endpoint := fmt.Sprintf("%s/v3/user/profile", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportErr("sendgrid", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.NewProviderError("sendgrid", resp.StatusCode,
			fmt.Errorf("profile lookup failed: %s", string(body)))
	}
	return nil
}
