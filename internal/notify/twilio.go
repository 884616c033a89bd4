// Package notify delivers guardian SMS through the Twilio Messages REST API.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notifier sends a text message and returns the provider message id.
type Notifier interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// TwilioClient calls the Twilio Messages endpoint directly.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	HTTP       *http.Client
	Skip       bool
}

// NewTwilio creates a client. With skip set no network call is made and a
// fake message id is returned, which keeps dev and CI environments quiet.
func NewTwilio(accountSID, authToken, from string, skip bool) *TwilioClient {
	return &TwilioClient{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    "https://api.twilio.com",
		Skip:       skip,
		HTTP:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts one message. The caller is expected to pass an E.164 number.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" || body == "" {
		return "", errors.New("recipient and body required")
	}
	if c.Skip {
		return "SM-skip-" + uuid.NewString(), nil
	}
	if c.AccountSID == "" || c.AuthToken == "" || c.From == "" {
		return "", errors.New("twilio credentials not configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.BaseURL, c.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("twilio error %s: %s", resp.Status, string(respBody))
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode twilio response: %w", err)
	}
	return out.SID, nil
}

// FormatE164 normalizes a stored guardian number for dialing. Numbers already
// carrying an international prefix pass through; anything else gets the
// configured default country code prepended.
func FormatE164(number, defaultCountryCode string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "+") {
		return number
	}
	return "+" + defaultCountryCode + number
}
