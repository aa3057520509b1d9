// ABOUTME: Business Messages REST client implementing the Notifier contract
// ABOUTME: Authenticates with an RS256 service-account assertion exchanged for a bearer token

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// messagingScope is the OAuth scope required for conversation sends.
const messagingScope = "https://www.googleapis.com/auth/businessmessages"

// serviceAccount holds the fields we need from a service account key file.
type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// BMClient sends messages and events through the Business Messages REST API.
type BMClient struct {
	apiBase      string
	businessName string
	account      serviceAccount
	httpClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewBMClient creates a client from a service account credentials file.
// businessName is the display name attached to every outbound representative.
func NewBMClient(apiBase, credentialsFile, businessName string, logger *slog.Logger) (*BMClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var account serviceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("credentials file missing client_email or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = "https://oauth2.googleapis.com/token"
	}

	// Fail early on an unparseable key rather than on the first send
	if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey)); err != nil {
		return nil, fmt.Errorf("parsing service account private key: %w", err)
	}

	return &BMClient{
		apiBase:      strings.TrimRight(apiBase, "/"),
		businessName: businessName,
		account:      account,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger.With("component", "notifier"),
	}, nil
}

// SendTyping sends a typing started or stopped indicator.
func (c *BMClient) SendTyping(ctx context.Context, conversationID string, rep Representative, started bool) error {
	event := EventTypingStopped
	if started {
		event = EventTypingStarted
	}
	return c.postEvent(ctx, conversationID, event, rep)
}

// SendEvent delivers a representative joined/left event.
func (c *BMClient) SendEvent(ctx context.Context, conversationID string, event EventType, rep Representative) error {
	return c.postEvent(ctx, conversationID, event, rep)
}

// SendMessage delivers a text message. Every message carries a live agent
// request suggestion so the user can always escalate to a human.
func (c *BMClient) SendMessage(ctx context.Context, conversationID, text string, rep Representative) error {
	body := map[string]any{
		"messageId": uuid.New().String(),
		"representative": map[string]any{
			"representativeType": string(rep),
			"displayName":        c.businessName,
		},
		"text":     text,
		"fallback": text,
		"suggestions": []map[string]any{
			{"liveAgentRequest": map[string]any{}},
		},
	}

	path := fmt.Sprintf("/v1/conversations/%s/messages", url.PathEscape(conversationID))
	return c.post(ctx, path, body)
}

// postEvent posts a conversation event with a fresh event id.
func (c *BMClient) postEvent(ctx context.Context, conversationID string, event EventType, rep Representative) error {
	body := map[string]any{
		"eventType": string(event),
		"representative": map[string]any{
			"representativeType": string(rep),
			"displayName":        c.businessName,
		},
	}

	path := fmt.Sprintf("/v1/conversations/%s/events?eventId=%s",
		url.PathEscape(conversationID), uuid.New().String())
	return c.post(ctx, path, body)
}

// post sends an authenticated JSON request to the API.
func (c *BMClient) post(ctx context.Context, path string, body any) error {
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("acquiring access token: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// token returns a cached access token, exchanging a signed assertion for a
// fresh one when the cache is empty or near expiry.
func (c *BMClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	assertion, err := c.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.account.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token exchange failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	c.logger.Debug("access token refreshed", "expires_in", tokenResp.ExpiresIn)
	return c.accessToken, nil
}

// signAssertion builds the RS256 service-account assertion.
func (c *BMClient) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parsing private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.account.ClientEmail,
		"scope": messagingScope,
		"aud":   c.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}
