// Package elasticsearch builds a verified go-elasticsearch client.
package elasticsearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/infrastructure/retry"
)

const defaultURL = "http://localhost:9200"

// NewClient creates a client and pings it with backoff until it answers or
// the retry budget is spent.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	url := normalizeURL(cfg.URL)
	clientConfig := es.Config{
		Addresses:  []string{url},
		Transport:  newTransport(url, cfg.InsecureSkipVerify),
		MaxRetries: cfg.MaxRetries,
	}

	switch {
	case cfg.APIKey != "":
		clientConfig.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	log.Info("Verifying Elasticsearch connection", logger.String("url", url))

	err = retry.Retry(ctx, *cfg.RetryConfig, func(attempt int) error {
		pingErr := ping(ctx, client, cfg.PingTimeout)
		if pingErr != nil {
			log.Debug("Elasticsearch ping failed", logger.Int("attempt", attempt), logger.Error(pingErr))
		}
		return pingErr
	})
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}

	log.Info("Elasticsearch connection established", logger.String("url", url))
	return client, nil
}

func normalizeURL(url string) string {
	if url == "" {
		return defaultURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func newTransport(url string, insecure bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if strings.HasPrefix(url, "https://") {
		//nolint:gosec // opt-in for self-signed development clusters
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecure}
	}
	return transport
}

func ping(ctx context.Context, client *es.Client, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned [%s]: %s", res.Status(), string(body))
	}
	return nil
}
