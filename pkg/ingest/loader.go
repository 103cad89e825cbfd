package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/zeywox/veyronix-core/pkg/catalog"
)

// LoadFeed reads a JSON feed (an array of feed records) from a local file
// path or an http(s) URL and ingests it. Used at bootstrap to seed the
// catalog.
func (ing *Ingester) LoadFeed(ctx context.Context, source string) ([]catalog.Product, error) {
	data, err := readFeed(ctx, source)
	if err != nil {
		return nil, err
	}

	var rows []Input
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source, err)
	}

	ing.logger.Info().Str("source", source).Int("rows", len(rows)).Msg("Loading feed")
	return ing.Ingest(ctx, rows), nil
}

func readFeed(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("feed request: %w", err)
		}
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch feed %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch feed %s: status %d", source, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read feed body: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}
	return data, nil
}
