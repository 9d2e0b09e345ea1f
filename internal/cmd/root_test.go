package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLIEnv isolates a command run from any config.yaml and points the
// profile store at a temporary sqlite file
func setupCLIEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ALLERGENSCAN_LLM_API_KEY", "")
	t.Setenv("ALLERGENSCAN_LOG_LEVEL", "error")
	t.Setenv("ALLERGENSCAN_PROFILE_BACKEND", "sqlite")
	t.Setenv("ALLERGENSCAN_PROFILE_PATH", filepath.Join(dir, "profile.db"))
}

// runCLI executes a fresh command tree and returns stdout
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAllergensCmd(t *testing.T) {
	out, err := runCLI(t, "allergens")
	require.NoError(t, err)

	var entries []allergenEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 14)
	assert.Equal(t, "peanuts", entries[0].ID)
}

func TestProfileCmd(t *testing.T) {
	setupCLIEnv(t)

	t.Run("empty profile lists nothing", func(t *testing.T) {
		out, err := runCLI(t, "profile", "list")
		require.NoError(t, err)

		var got profileOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Empty(t, got.Allergens)
	})

	t.Run("add persists across runs", func(t *testing.T) {
		_, err := runCLI(t, "profile", "add", "milk", "Peanuts")
		require.NoError(t, err)

		out, err := runCLI(t, "profile", "list")
		require.NoError(t, err)

		var got profileOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []string{"milk", "peanuts"}, got.Allergens)
		assert.Equal(t, []string{"Milk (Dairy)", "Peanuts"}, got.DisplayNames)
	})

	t.Run("unknown id is rejected", func(t *testing.T) {
		_, err := runCLI(t, "profile", "add", "unicorn")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("remove", func(t *testing.T) {
		out, err := runCLI(t, "profile", "remove", "milk")
		require.NoError(t, err)

		var got profileOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []string{"peanuts"}, got.Allergens)
	})

	t.Run("add requires an argument", func(t *testing.T) {
		_, err := runCLI(t, "profile", "add")
		assert.Error(t, err)
	})
}

func TestLookupCmd(t *testing.T) {
	setupCLIEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/product/4000000000002.json" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"status": 0}`)
			return
		}
		_, _ = io.WriteString(w, `{"status": 1, "product": {"product_name": "Rice Cakes", "ingredients_text": "Rice, Salt"}}`)
	}))
	defer server.Close()
	t.Setenv("ALLERGENSCAN_OPENFOODFACTS_BASE_URL", server.URL)

	t.Run("found product works without an API key", func(t *testing.T) {
		out, err := runCLI(t, "lookup", "4000000000002")
		require.NoError(t, err)

		var got domain.LookupResult
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.NotNil(t, got.Product)
		assert.Equal(t, "Rice Cakes", got.Product.ProductName)
		assert.Equal(t, "Rice, Salt", got.Product.Ingredients)
		assert.Equal(t, "OpenFoodFacts", got.Source)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := runCLI(t, "lookup", "123")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestAnalyzeCmd_RequiresAPIKey(t *testing.T) {
	setupCLIEnv(t)

	_, err := runCLI(t, "analyze", "4000000000002")
	assert.ErrorContains(t, err, "LLM API key is required")
}
