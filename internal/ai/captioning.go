package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"moodboard-backend/internal/config"
)

// Captioner talks to a BLIP-style image captioning service over HTTP
type Captioner struct {
	baseURL string
	http    *http.Client
}

// NewCaptioner builds a Captioner from app config.
func NewCaptioner(cfg config.AIConfig) *Captioner {
	timeout := cfg.CaptionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Captioner{
		baseURL: cfg.CaptionAddr,
		http:    &http.Client{Timeout: timeout},
	}
}

type captionRequest struct {
	Inputs string `json:"inputs"`
}

type captionResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Caption describes one image. The image travels base64-encoded.
func (c *Captioner) Caption(ctx context.Context, image []byte) (string, error) {
	payload, err := json.Marshal(captionRequest{
		Inputs: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", err
	}

	var caption string
	err = withRetry(ctx, "caption", defaultRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/caption", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("caption service returned %d", resp.StatusCode)
		}

		var out []captionResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		if len(out) == 0 || out[0].GeneratedText == "" {
			return fmt.Errorf("caption service returned no caption")
		}
		caption = out[0].GeneratedText
		return nil
	})
	if err != nil {
		return "", err
	}
	return caption, nil
}

// CaptionAll captions a batch, tolerating per-image failures: a tile that
// cannot be captioned contributes nothing rather than failing the upload.
func (c *Captioner) CaptionAll(ctx context.Context, images [][]byte) []string {
	captions := make([]string, 0, len(images))
	for _, img := range images {
		caption, err := c.Caption(ctx, img)
		if err != nil {
			continue
		}
		captions = append(captions, caption)
	}
	return captions
}
