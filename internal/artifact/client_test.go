package artifact_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/internal/artifact"
	dErrors "verdant/pkg/domain-errors"
)

func TestGenerateCertificateDocument(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url": "https://artifacts.example/cert-1.pdf",
		})
	}))
	defer srv.Close()

	client := artifact.NewClient(srv.URL)
	url, err := client.GenerateCertificateDocument(context.Background(), "user-1", "B")
	require.NoError(t, err)

	assert.Equal(t, "https://artifacts.example/cert-1.pdf", url)
	assert.Equal(t, "/documents/certificate", gotPath)
	assert.Equal(t, "user-1", gotBody["userId"])
	assert.Equal(t, "B", gotBody["grade"])
}

func TestGenerateAssessmentDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/assessment", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url": "https://artifacts.example/assessment-1.pdf",
		})
	}))
	defer srv.Close()

	client := artifact.NewClient(srv.URL)
	url, err := client.GenerateAssessmentDocument(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "https://artifacts.example/assessment-1.pdf", url)
}

func TestGenerationFailures(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := artifact.NewClient(srv.URL)
		_, err := client.GenerateCertificateDocument(context.Background(), "user-1", "B")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	})

	t.Run("unreachable service", func(t *testing.T) {
		client := artifact.NewClient("http://127.0.0.1:1")
		_, err := client.GenerateCertificateDocument(context.Background(), "user-1", "B")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	})

	t.Run("empty url in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer srv.Close()

		client := artifact.NewClient(srv.URL)
		_, err := client.GenerateAssessmentDocument(context.Background(), "reg-1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	})
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := artifact.NewClient(srv.URL)
	for i := 0; i < 10; i++ {
		_, err := client.GenerateCertificateDocument(context.Background(), "user-1", "B")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	}

	// The breaker opened after the failure threshold; later calls were
	// rejected without touching the service.
	assert.Less(t, hits, 10)
}
