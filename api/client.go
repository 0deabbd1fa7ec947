package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"

	"pulsecheck/checkin"
)

// Client is the Slack Web API client used for outbound delivery. It
// implements checkin.Messenger and checkin.Directory.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	maxRetries int
	log        log15.Logger
}

func NewClient(token string, logger log15.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		log:        logger,
	}
}

func (c *Client) postMessageURL() string {
	if c.baseURL != "" {
		return c.baseURL + "/chat.postMessage"
	}
	return slackPostMessageURL
}

func (c *Client) userInfoURL() string {
	if c.baseURL != "" {
		return c.baseURL + "/users.info"
	}
	return slackUserInfoURL
}

// SendQuestionPrompt sends one survey question. The rating role carries the
// fixed-choice buttons; text roles are plain prompt sections.
func (c *Client) SendQuestionPrompt(ctx context.Context, slackUserID, role, text string, choices []string) error {
	msg := slackMessage{
		Channel: slackUserID,
		Text:    text,
		Blocks: []block{
			{Type: "section", Text: &blockText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Question %d:* %s", questionNumbers[role], text),
			}},
		},
	}

	if len(choices) > 0 {
		msg.Blocks[0].Text.Text += "\n\n_(1 = Terrible, 5 = Excellent)_"
		var buttons []element
		for _, choice := range choices {
			buttons = append(buttons, element{
				Type:     "button",
				Text:     &blockText{Type: "plain_text", Text: choice},
				Value:    choice,
				ActionID: "rating_" + choice,
			})
		}
		msg.Blocks = append(msg.Blocks, block{Type: "actions", Elements: buttons})
	} else {
		msg.Blocks = append(msg.Blocks, block{Type: "section", Text: &blockText{
			Type: "mrkdwn",
			Text: "_Please type your answer below..._",
		}})
	}

	return c.postMessage(ctx, msg)
}

func (c *Client) SendPlainMessage(ctx context.Context, slackUserID, text string) error {
	return c.postMessage(ctx, slackMessage{Channel: slackUserID, Text: text})
}

func (c *Client) postMessage(ctx context.Context, msg slackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("postMessage: failed to marshal message: %w", err)
	}

	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 3 * time.Second, Jitter: true}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Duration()):
			}
		}

		lastErr = c.doPost(ctx, c.postMessageURL(), body)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		c.log.Warn("slack send failed, retrying", "attempt", attempt+1, "err", lastErr)
	}
	return lastErr
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("slack api responded with status %d", e.status)
}

func retryable(err error) bool {
	if statusErr, ok := err.(*httpStatusError); ok {
		return statusErr.status == http.StatusTooManyRequests || statusErr.status >= 500
	}
	// Network-level failures are worth another attempt.
	return true
}

func (c *Client) doPost(ctx context.Context, apiURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{status: resp.StatusCode}
	}

	var apiResp slackAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode slack response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("slack api error: %s", apiResp.Error)
	}
	return nil
}

// FetchProfile resolves a Slack user's display name, email, and timezone for
// lazy user creation.
func (c *Client) FetchProfile(ctx context.Context, slackUserID string) (checkin.Profile, error) {
	reqURL := c.userInfoURL() + "?user=" + url.QueryEscape(slackUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return checkin.Profile{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return checkin.Profile{}, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	var info userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return checkin.Profile{}, fmt.Errorf("failed to decode user info: %w", err)
	}
	if !info.OK {
		return checkin.Profile{}, fmt.Errorf("slack api error: %s", info.Error)
	}

	tz := info.User.TZ
	if tz == "" {
		tz = defaultTimezone
	}
	return checkin.Profile{
		Username: info.User.Name,
		Email:    info.User.Profile.Email,
		Timezone: tz,
	}, nil
}
