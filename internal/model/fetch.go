package model

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// fetchArtifact downloads the classifier artifact from the model registry
// to dest. A failed or partial download is caught afterwards by artifact
// validation in readArtifact.
func fetchArtifact(url, dest string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().SetTimeout(timeout)
	resp, err := client.R().
		SetOutput(dest).
		Get(url)
	if err != nil {
		return fmt.Errorf("fetch artifact: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("fetch artifact: registry returned %d", resp.StatusCode())
	}

	log.Info().Str("url", url).Str("dest", dest).Msg("classifier artifact downloaded")
	return nil
}
