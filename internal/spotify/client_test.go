package spotify

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*Client, *httptest.Server, *httptest.Server, *atomic.Int32) {
	t.Helper()

	var tokenRequests atomic.Int32
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-tok", r.PostForm.Get("refresh_token"))

		fmt.Fprint(w, `{"access_token": "access-tok", "expires_in": 3600}`)
	}))
	t.Cleanup(auth.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-tok", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodGet:
			fmt.Fprint(w, `{"name": "Dynamic Covers"}`)
		case r.Method == http.MethodPut:
			assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			_, err = base64.StdEncoding.DecodeString(string(body))
			assert.NoError(t, err, "upload body must be valid base64")
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(api.Close)

	client := NewClient("client-id", "client-secret", "refresh-tok", zap.NewNop())
	client.authURL = auth.URL
	client.apiURL = api.URL

	return client, auth, api, &tokenRequests
}

func TestPlaylistName(t *testing.T) {
	client, _, _, _ := newTestClient(t)

	name, err := client.PlaylistName(context.Background(), "pl123")
	require.NoError(t, err)
	assert.Equal(t, "Dynamic Covers", name)
}

func TestUploadCover(t *testing.T) {
	client, _, _, _ := newTestClient(t)

	encoded := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	err := client.UploadCover(context.Background(), "pl123", encoded)
	assert.NoError(t, err)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	client, _, _, tokenRequests := newTestClient(t)

	_, err := client.PlaylistName(context.Background(), "pl123")
	require.NoError(t, err)
	err = client.UploadCover(context.Background(), "pl123", base64.StdEncoding.EncodeToString([]byte("x")))
	require.NoError(t, err)

	assert.Equal(t, int32(1), tokenRequests.Load(), "second call must reuse the cached token")
}

func TestTokenFailureSurfacesError(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_grant"}`, http.StatusBadRequest)
	}))
	defer auth.Close()

	client := NewClient("client-id", "client-secret", "bad-refresh", zap.NewNop())
	client.authURL = auth.URL

	_, err := client.PlaylistName(context.Background(), "pl123")
	assert.Error(t, err)
}

func TestUploadRejectedStatusIsError(t *testing.T) {
	client, _, api, _ := newTestClient(t)
	api.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	})

	err := client.UploadCover(context.Background(), "pl123", "eA==")
	assert.Error(t, err)
}
