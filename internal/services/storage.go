package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/config"
	"github.com/meditrack/reminder-service/pkg/circuitbreaker"
)

// StorageClient uploads verification photos to the hosted object store.
type StorageClient struct {
	baseURL    string
	bucket     string
	token      string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	log        *zap.Logger
}

func NewStorageClient(cfg config.StorageConfig, log *zap.Logger) *StorageClient {
	return &StorageClient{
		baseURL: cfg.BaseURL,
		bucket:  cfg.Bucket,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cb:  circuitbreaker.NewCircuitBreaker("file-storage"),
		log: log,
	}
}

// Upload stores data under path in the verification bucket and returns the
// stored object path.
func (s *StorageClient) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	objectPath := fmt.Sprintf("%s/%s", s.bucket, path)

	_, err := s.cb.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/object/%s", s.baseURL, objectPath)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", contentType)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("storage API error: %s: %s", resp.Status, string(body))
		}
		return nil, nil
	})
	if err != nil {
		return "", err
	}

	s.log.Debug("uploaded verification photo", zap.String("path", objectPath))
	return objectPath, nil
}
