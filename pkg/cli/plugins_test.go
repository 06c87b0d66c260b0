package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pluginListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/plugins", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"interfaces": []interfaceSummary{
				{
					Name:            "nn-index",
					PathVar:         "QUIVER_NN_INDEX_PATH",
					Implementations: []string{"linear", "lsh"},
				},
				{
					Name:            "descriptor-set",
					Implementations: []string{"memory", "redis"},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunPlugins(t *testing.T) {
	srv := pluginListingServer(t)

	err := runPlugins([]string{"-registry", srv.URL})
	assert.NoError(t, err)
}

func TestRunPlugins_InterfaceFilter(t *testing.T) {
	srv := pluginListingServer(t)

	err := runPlugins([]string{"-registry", srv.URL, "-interface", "nn-index"})
	assert.NoError(t, err)

	err = runPlugins([]string{"-registry", srv.URL, "-interface", "bogus"})
	assert.ErrorContains(t, err, "unknown interface: bogus")
}

func TestRunPlugins_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := runPlugins([]string{"-registry", srv.URL})
	assert.ErrorContains(t, err, "server returned")
}
