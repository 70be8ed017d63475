package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultEndpoint = "https://api.resend.com/emails"

// Client sends invite emails through the Resend HTTP API. Email delivery
// is best-effort: a failure is logged and reported to the caller but
// never aborts token issuance.
type Client struct {
	apiKey   string
	from     string
	endpoint string
	http     *http.Client
	log      *zap.Logger
}

// NewClient creates a Resend client. An empty apiKey disables sending;
// Enabled reports whether delivery is configured.
func NewClient(apiKey, from string, log *zap.Logger) *Client {
	return &Client{
		apiKey:   apiKey,
		from:     from,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendInvite delivers one recording invite. recordURL is the absolute
// link embedding the token; expiryHours is shown in the email body.
func (c *Client) SendInvite(ctx context.Context, email, name, sessionName, recordURL string, expiryHours int) error {
	if !c.Enabled() {
		c.log.Debug("invite email skipped, no API key configured",
			zap.String("email", email))
		return fmt.Errorf("mailer: RESEND_API_KEY not configured")
	}

	body, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{email},
		Subject: fmt.Sprintf("Recording Invite: %s", sessionName),
		HTML:    inviteHTML(name, sessionName, recordURL, expiryHours),
	})
	if err != nil {
		return fmt.Errorf("mailer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("invite email send failed",
			zap.String("email", email), zap.Error(err))
		return fmt.Errorf("mailer: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("invite email rejected by provider",
			zap.String("email", email),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail))
		return fmt.Errorf("mailer: provider returned %d", resp.StatusCode)
	}

	c.log.Info("invite email sent",
		zap.String("email", email),
		zap.String("session_name", sessionName))
	return nil
}

func inviteHTML(name, sessionName, recordURL string, expiryHours int) string {
	return fmt.Sprintf(`
<div style="font-family: -apple-system, sans-serif; max-width: 520px; margin: 0 auto; padding: 40px 20px;">
  <h1 style="font-size: 20px; text-align: center;">You're Invited to Record</h1>
  <p style="text-align: center;">Hi %s, you've been invited to join<br><strong>%s</strong></p>
  <div style="text-align: center; margin: 28px 0;">
    <a href="%s" style="display: inline-block; background: #22d67a; color: #0b0d11; padding: 14px 36px; border-radius: 10px; font-weight: 700; text-decoration: none;">Open Recording Page</a>
  </div>
  <p style="font-size: 12px; color: #7a7f92;">
    1. Click the button above to open the recording page<br>
    2. Allow microphone access and click Start Recording<br>
    3. Keep the tab open while you're on your call<br>
    4. Click Stop &amp; Submit when you're done
  </p>
  <p style="font-size: 12px; color: #f0a030;">This link expires in %d hours and can only be used once.</p>
</div>`, name, sessionName, recordURL, expiryHours)
}
