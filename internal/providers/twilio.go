// internal/providers/twilio.go
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"
)

// TwilioClient talks to the Twilio messaging API using form-encoded requests
// with HTTP basic auth, which is how Twilio's REST surface works.
type TwilioClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTwilioClient(baseURL string, timeout time.Duration) *TwilioClient {
	return &TwilioClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendSMS sends one outbound SMS. The messaging service SID takes precedence
// over the bare from-number when both are configured.
func (c *TwilioClient) SendSMS(ctx context.Context, cfg *models.TwilioConfig, to, body string) (*DispatchResult, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	if cfg.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", cfg.MessagingServiceSID)
	} else {
		form.Set("From", cfg.PhoneNumber)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportErr("twilio", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderError("twilio", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var msgResp twilioMessageResponse
		_ = json.Unmarshal(respBody, &msgResp)
		detail := msgResp.Message
		if detail == "" {
			detail = string(respBody)
		}
		return nil, errors.NewProviderError("twilio", resp.StatusCode,
			fmt.Errorf("message send failed: %s", detail))
	}

	var msgResp twilioMessageResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return nil, errors.NewProviderError("twilio", resp.StatusCode, err)
	}

	return &DispatchResult{MessageID: msgResp.SID, Status: msgResp.Status}, nil
}

// TestConnection verifies the credentials by fetching the account resource.
func (c *TwilioClient) TestConnection(ctx context.Context, cfg *models.TwilioConfig) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", c.baseURL, cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewInternalError(err)
	}
	req.SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportErr("twilio", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.NewProviderError("twilio", resp.StatusCode,
			fmt.Errorf("account lookup failed: %s", string(body)))
	}
	return nil
}
