package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/sony/gobreaker"
)

const generatePath = "/generate"

// GenerationClient calls the external comment-generation service. Calls go
// through a circuit breaker: while the breaker is open the ingestion tick
// degrades to a no-op instead of hammering a struggling upstream.
type GenerationClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewGenerationClient(baseURL string, timeout time.Duration) *GenerationClient {
	settings := gobreaker.Settings{
		Name: "generation",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// An empty reply means the upstream is healthy but has nothing to
		// give; only real failures should trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNoData)
		},
		Timeout: 60 * time.Second,
	}
	return &GenerationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// generationResponse is the wire shape of a /generate reply.
type generationResponse struct {
	Success            bool   `json:"success"`
	PostID             string `json:"postId"`
	PostTitle          string `json:"postTitle"`
	CompanyID          string `json:"companyId"`
	BusinessCategoryID string `json:"businessCategoryId"`
	CompanyName        string `json:"companyName"`
	Comment            string `json:"comment"`
	WordCount          int    `json:"wordCount"`
}

// Generate fetches one newly generated comment. Returns domain.ErrNoData
// when the service answers without a payload.
func (g *GenerationClient) Generate(ctx context.Context) (*domain.NewComment, error) {
	result, err := g.breaker.Execute(func() (any, error) {
		return g.generate(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("generation circuit open: %w", err)
		}
		return nil, err
	}
	return result.(*domain.NewComment), nil
}

func (g *GenerationClient) generate(ctx context.Context) (*domain.NewComment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+generatePath, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed generationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed generate response: %w", err)
	}

	if !parsed.Success {
		return nil, domain.ErrNoData
	}
	if parsed.PostID == "" || parsed.CompanyID == "" || parsed.Comment == "" {
		return nil, fmt.Errorf("generate response missing required fields")
	}

	return &domain.NewComment{
		PostID:             parsed.PostID,
		PostTitle:          parsed.PostTitle,
		CompanyID:          parsed.CompanyID,
		BusinessCategoryID: parsed.BusinessCategoryID,
		StakeholderName:    parsed.CompanyName,
		RawComment:         parsed.Comment,
		WordCount:          parsed.WordCount,
	}, nil
}
