package processor

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// maxFetchBytes caps documents downloaded over HTTP.
const maxFetchBytes = 256 << 20

// Read loads a document from a local path or an http(s) URL.
func Read(client *http.Client, input string) ([]byte, error) {
	if isURL(input) {
		return fetch(client, input)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read input %q: %w", input, err)
	}
	return data, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// fetch downloads a document over HTTP.
func fetch(client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %q: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("fetch %q: document larger than %d bytes", url, maxFetchBytes)
	}

	return data, nil
}
