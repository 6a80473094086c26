// Package verify wraps the external EdenAI-style moderation API used to
// attach an ai_verified verdict to new listings. The service's internals
// are outside this system; its failures never block auction creation.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
)

// Verdict is the moderation outcome for a listing's media and text.
type Verdict struct {
	Approved   bool    `json:"approved"`
	ImageScore float64 `json:"image_score"`
	TextScore  float64 `json:"text_score"`
	MatchScore float64 `json:"match_score,omitempty"`
}

// approvalThreshold: a listing passes when both NSFW likelihoods stay
// below it.
const approvalThreshold = 0.5

// videoMatchThreshold: a video listing passes when the analysis service
// scores the video/description match at or above it.
const videoMatchThreshold = 0.5

// Client calls the moderation endpoints. A nil Client (feature disabled)
// is valid; VerifyListing then reports unavailable.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Logger  *logrus.Logger
}

func NewClient(baseURL, apiKey string, logger *logrus.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Logger:  logger,
	}
}

type moderationResponse struct {
	Amazon struct {
		NSFWLikelihood float64 `json:"nsfw_likelihood"`
	} `json:"amazon"`
}

// VerifyListing moderates the first image and the description. Transport
// or decoding failures translate to ErrVerificationUnavailable at this
// boundary so callers can proceed unverified.
func (c *Client) VerifyListing(ctx context.Context, imageURL, description string) (*Verdict, error) {
	if c == nil || c.APIKey == "" {
		return nil, apperrors.ErrVerificationUnavailable
	}

	imageScore, err := c.moderate(ctx, "/image/moderation", map[string]any{
		"providers": "amazon",
		"file_url":  imageURL,
	})
	if err != nil {
		return nil, err
	}

	textScore, err := c.moderate(ctx, "/text/moderation", map[string]any{
		"providers": "amazon",
		"text":      description,
		"language":  "en",
	})
	if err != nil {
		return nil, err
	}

	return &Verdict{
		Approved:   imageScore < approvalThreshold && textScore < approvalThreshold,
		ImageScore: imageScore,
		TextScore:  textScore,
	}, nil
}

type videoMatchResponse struct {
	MatchScore float64 `json:"match_score"`
}

// VerifyVideo scores how well a listing video matches its description.
// Same availability boundary as VerifyListing: any failure reports
// ErrVerificationUnavailable and the listing publishes unverified.
func (c *Client) VerifyVideo(ctx context.Context, videoURL, description string) (*Verdict, error) {
	if c == nil || c.APIKey == "" {
		return nil, apperrors.ErrVerificationUnavailable
	}

	var parsed videoMatchResponse
	if err := c.post(ctx, "/video/match", map[string]any{
		"video_url":   videoURL,
		"description": description,
	}, &parsed); err != nil {
		return nil, err
	}

	return &Verdict{
		Approved:   parsed.MatchScore >= videoMatchThreshold,
		MatchScore: parsed.MatchScore,
	}, nil
}

func (c *Client) moderate(ctx context.Context, path string, payload map[string]any) (float64, error) {
	var parsed moderationResponse
	if err := c.post(ctx, path, payload, &parsed); err != nil {
		return 0, err
	}
	return parsed.Amazon.NSFWLikelihood, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrVerificationUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrVerificationUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		if c.Logger != nil {
			c.Logger.WithError(err).WithField("path", path).Warn("moderation request failed")
		}
		return fmt.Errorf("%w: %v", apperrors.ErrVerificationUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", apperrors.ErrVerificationUnavailable, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrVerificationUnavailable, err)
	}
	return nil
}
