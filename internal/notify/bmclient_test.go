// ABOUTME: Tests for the Business Messages client
// ABOUTME: Uses a fake token endpoint and API server to verify auth and payloads

package notify

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI captures requests made by the client under test.
type fakeAPI struct {
	mu       sync.Mutex
	tokens   int
	requests []capturedRequest
}

type capturedRequest struct {
	path   string
	auth   string
	body   map[string]any
	method string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		assert.NotEmpty(t, r.Form.Get("assertion"))

		f.mu.Lock()
		f.tokens++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":3600}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		f.requests = append(f.requests, capturedRequest{
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   body,
			method: r.Method,
		})
		f.mu.Unlock()

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{}`)
	})
	return mux
}

func writeCredentials(t *testing.T, tokenURI string) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	creds := map[string]string{
		"client_email": "crm@test-project.iam.gserviceaccount.com",
		"private_key":  string(keyPEM),
		"token_uri":    tokenURI,
	}
	data, err := json.Marshal(creds)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func newTestClient(t *testing.T) (*BMClient, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	credsPath := writeCredentials(t, srv.URL+"/token")
	client, err := NewBMClient(srv.URL, credsPath, "Acme Retail", nil)
	require.NoError(t, err)
	return client, api
}

func TestBMClient_SendMessage(t *testing.T) {
	client, api := newTestClient(t)

	err := client.SendMessage(context.Background(), "c1", "Hello there", RepresentativeBot)
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, "/v1/conversations/c1/messages", req.path)
	assert.Equal(t, "Bearer test-token", req.auth)
	assert.Equal(t, "Hello there", req.body["text"])
	assert.Equal(t, "Hello there", req.body["fallback"])
	assert.NotEmpty(t, req.body["messageId"])

	rep, ok := req.body["representative"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BOT", rep["representativeType"])
	assert.Equal(t, "Acme Retail", rep["displayName"])

	// Every message offers escalation to a live agent
	suggestions, ok := req.body["suggestions"].([]any)
	require.True(t, ok)
	require.Len(t, suggestions, 1)
}

func TestBMClient_SendTyping(t *testing.T) {
	client, api := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SendTyping(ctx, "c1", RepresentativeBot, true))
	require.NoError(t, client.SendTyping(ctx, "c1", RepresentativeBot, false))

	require.Len(t, api.requests, 2)
	assert.Equal(t, "TYPING_STARTED", api.requests[0].body["eventType"])
	assert.Equal(t, "TYPING_STOPPED", api.requests[1].body["eventType"])
	assert.Equal(t, "/v1/conversations/c1/events", api.requests[0].path)
}

func TestBMClient_SendEvent(t *testing.T) {
	client, api := newTestClient(t)

	err := client.SendEvent(context.Background(), "c1", EventRepresentativeJoined, RepresentativeHuman)
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	assert.Equal(t, "REPRESENTATIVE_JOINED", api.requests[0].body["eventType"])
	rep := api.requests[0].body["representative"].(map[string]any)
	assert.Equal(t, "HUMAN", rep["representativeType"])
}

func TestBMClient_TokenIsCached(t *testing.T) {
	client, api := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SendMessage(ctx, "c1", "one", RepresentativeBot))
	require.NoError(t, client.SendMessage(ctx, "c1", "two", RepresentativeBot))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 1, api.tokens, "second send should reuse the cached token")
}

func TestNewBMClient_MissingCredentials(t *testing.T) {
	_, err := NewBMClient("https://api.example.com", "/nonexistent.json", "Acme", nil)
	assert.Error(t, err)
}

func TestNewBMClient_BadKey(t *testing.T) {
	creds := `{"client_email":"a@b.c","private_key":"not a key","token_uri":"https://t"}`
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(creds), 0600))

	_, err := NewBMClient("https://api.example.com", path, "Acme", nil)
	assert.Error(t, err)
}
