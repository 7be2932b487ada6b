package secrets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		path    string
		key     string
		wantErr bool
	}{
		{in: "vault:openvpn/telegram#bot_token", path: "openvpn/telegram", key: "bot_token"},
		{in: "vault:/openvpn/minio/#secret_key", path: "openvpn/minio", key: "secret_key"},
		{in: "vault:openvpn/telegram", wantErr: true},
		{in: "vault:#key", wantErr: true},
		{in: "vault:path#", wantErr: true},
		{in: "plain", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path, key, err := ParseRef(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.key, key)
		})
	}
}

func kvServer(t *testing.T, data map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/openvpn/telegram" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data": data,
				"metadata": map[string]any{
					"created_time":    "2024-01-01T00:00:00.000000000Z",
					"custom_metadata": nil,
					"deletion_time":   "",
					"destroyed":       false,
					"version":         1,
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultResolve(t *testing.T) {
	srv := kvServer(t, map[string]any{"bot_token": "123:abc", "count": 3})

	v, err := NewVault(testLogger(), srv.URL, "test-token", "")
	require.NoError(t, err)

	got, err := v.Resolve(context.Background(), "vault:openvpn/telegram#bot_token")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", got)

	_, err = v.Resolve(context.Background(), "vault:openvpn/telegram#missing")
	assert.Error(t, err)

	_, err = v.Resolve(context.Background(), "vault:openvpn/telegram#count")
	assert.Error(t, err)

	_, err = v.Resolve(context.Background(), "vault:openvpn/other#key")
	assert.Error(t, err)
}

func TestVaultResolve_PlainValue(t *testing.T) {
	v, err := NewVault(testLogger(), "http://127.0.0.1:1", "t", "secret")
	require.NoError(t, err)

	got, err := v.Resolve(context.Background(), "not-a-ref")

	require.NoError(t, err)
	assert.Equal(t, "not-a-ref", got)
}

func TestPassthrough(t *testing.T) {
	got, err := Passthrough{}.Resolve(context.Background(), "value")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = Passthrough{}.Resolve(context.Background(), "vault:a#b")
	assert.Error(t, err)
}
