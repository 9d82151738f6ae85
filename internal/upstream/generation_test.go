package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/internal/domain"
)

func TestGenerateParsesSuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"postId": "post-9",
			"postTitle": "Labour law amendment",
			"companyId": "company-4",
			"businessCategoryId": "cat-3",
			"companyName": "Meera",
			"comment": "is kanoon se madad milegi",
			"wordCount": 5
		}`))
	}))
	defer server.Close()

	client := NewGenerationClient(server.URL, 5*time.Second)
	nc, err := client.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "post-9", nc.PostID)
	assert.Equal(t, "company-4", nc.CompanyID)
	assert.Equal(t, "cat-3", nc.BusinessCategoryID)
	assert.Equal(t, "Meera", nc.StakeholderName)
	assert.Equal(t, "is kanoon se madad milegi", nc.RawComment)
	assert.Equal(t, 5, nc.WordCount)
}

func TestGenerateUnsuccessfulResponseIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	client := NewGenerationClient(server.URL, 5*time.Second)
	nc, err := client.Generate(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoData)
	assert.Nil(t, nc)
}

func TestGenerateMissingRequiredFieldsFailsClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// success flag set but no payload fields
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := NewGenerationClient(server.URL, 5*time.Second)
	nc, err := client.Generate(context.Background())
	assert.Error(t, err)
	assert.Nil(t, nc)
}

func TestGenerateServerErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGenerationClient(server.URL, 5*time.Second)
	_, err := client.Generate(context.Background())
	assert.Error(t, err)
}

func TestGenerateCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewGenerationClient(server.URL, 5*time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.Generate(ctx)
		require.Error(t, err)
	}

	_, err := client.Generate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestGenerateNoDataDoesNotTripCircuit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	client := NewGenerationClient(server.URL, 5*time.Second)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := client.Generate(ctx)
		assert.ErrorIs(t, err, domain.ErrNoData)
	}
}
