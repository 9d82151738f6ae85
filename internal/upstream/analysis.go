package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
)

const analyzePath = "/analyze"

// AnalysisClient calls the external sentiment/translation service.
type AnalysisClient struct {
	baseURL string
	client  *http.Client
}

func NewAnalysisClient(baseURL string, timeout time.Duration) *AnalysisClient {
	return &AnalysisClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	Comment string `json:"comment"`
}

// analysisResponse is the wire shape of an /analyze reply.
type analysisResponse struct {
	Success        bool    `json:"success"`
	Translated     string  `json:"translated"`
	LanguageType   string  `json:"language_type"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentimentScore"`
	Summary        string  `json:"summary"`
	Error          string  `json:"error"`
}

// Analyze runs sentiment analysis for one comment. Any unsuccessful or
// malformed response is an error; the caller's retry budget decides what
// happens next.
func (a *AnalysisClient) Analyze(ctx context.Context, comment string) (*domain.AnalysisResult, error) {
	payload, err := json.Marshal(analyzeRequest{Comment: comment})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+analyzePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analyze response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed analysisResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed analyze response: %w", err)
	}

	if !parsed.Success {
		if parsed.Error != "" {
			return nil, fmt.Errorf("analyze rejected: %s", parsed.Error)
		}
		return nil, fmt.Errorf("analyze response not successful")
	}

	sentiment, err := parseSentiment(parsed.Sentiment)
	if err != nil {
		return nil, err
	}
	if parsed.Translated == "" {
		return nil, fmt.Errorf("analyze response missing translated text")
	}

	return &domain.AnalysisResult{
		StandardComment: parsed.Translated,
		Language:        parsed.LanguageType,
		Sentiment:       sentiment,
		SentimentScore:  parsed.SentimentScore,
		Summary:         parsed.Summary,
	}, nil
}

// parseSentiment normalizes the wire label before matching; the analysis
// service emits title case ("Positive") while we store uppercase.
func parseSentiment(s string) (domain.Sentiment, error) {
	switch normalized := domain.Sentiment(strings.ToUpper(s)); normalized {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown sentiment label %q", s)
	}
}
