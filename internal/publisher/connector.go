// Package publisher routes posts to per-platform publishing connectors.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// HTTPConnector posts to a connector service that speaks to one social
// network. The account's access token is sent as an OAuth2 bearer token.
type HTTPConnector struct {
	endpoint string
	client   *http.Client
}

// publishRequest carries the post as the platform shows it. Text already ends
// with the hashtags and the link.
type publishRequest struct {
	PostID    int64             `json:"post_id"`
	AccountID string            `json:"account_id"`
	Platform  models.Platform   `json:"platform"`
	Format    models.Format     `json:"format"`
	Text      string            `json:"text"`
	Media     []models.MediaRef `json:"media"`
}

type publishResponse struct {
	ExternalID string `json:"external_id"`
	Error      string `json:"error"`
}

// NewHTTPConnector builds a connector for {baseURL}/{platform}/publish. A nil
// client means http.DefaultClient.
func NewHTTPConnector(baseURL string, platform models.Platform, client *http.Client) *HTTPConnector {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPConnector{
		endpoint: fmt.Sprintf("%s/%s/publish", strings.TrimRight(baseURL, "/"), platform),
		client:   client,
	}
}

func (c *HTTPConnector) Publish(ctx context.Context, post *models.SocialPost, creds *publish.Credentials) (publish.Result, error) {
	if creds == nil || creds.AccessToken == "" {
		return publish.Result{}, fmt.Errorf("missing access token for %s", post.Platform)
	}

	body, err := json.Marshal(publishRequest{
		PostID:    post.ID,
		AccountID: creds.AccountID,
		Platform:  post.Platform,
		Format:    post.Format,
		Text:      post.Content().Text(),
		Media:     post.Media,
	})
	if err != nil {
		return publish.Result{}, fmt.Errorf("encode publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return publish.Result{}, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	authCtx := context.WithValue(ctx, oauth2.HTTPClient, c.client)
	client := oauth2.NewClient(authCtx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: creds.AccessToken,
		TokenType:   "Bearer",
	}))

	resp, err := client.Do(req)
	if err != nil {
		return publish.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return publish.Result{}, fmt.Errorf("%w: reading response: %v", publish.ErrOutcomeUnknown, err)
	}

	var out publishResponse
	decodeErr := json.Unmarshal(raw, &out)

	switch {
	case resp.StatusCode >= 500:
		return publish.Result{}, fmt.Errorf("%w: connector returned %d", publish.ErrOutcomeUnknown, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return publish.Result{Success: false, Error: msg}, nil
	case decodeErr != nil:
		log.Warn().Err(decodeErr).Str("endpoint", c.endpoint).Int("status", resp.StatusCode).Int64("post_id", post.ID).Msg("unreadable connector response")
		return publish.Result{}, fmt.Errorf("%w: unreadable connector response: %v", publish.ErrOutcomeUnknown, decodeErr)
	case out.ExternalID == "":
		return publish.Result{}, fmt.Errorf("%w: connector accepted post without an id", publish.ErrOutcomeUnknown)
	}
	return publish.Result{Success: true, ExternalID: out.ExternalID}, nil
}
