// Package covers keeps cover images fetched from the library service on
// local disk, so list re-renders do not hit the service for every image.
package covers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/shelfront/internal/errors"
)

const maxCoverBytes = 10 << 20

// Cache handles local caching of cover images.
type Cache struct {
	cacheDir string
	timeout  time.Duration
}

// NewCache creates a new cover cache at the specified directory.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		cacheDir: cacheDir,
		timeout:  30 * time.Second,
	}, nil
}

// Get returns the path of the cached cover of item id in section, fetching
// it with client when it is not on disk yet. client carries the visitor's
// cookies for the library service. An empty coverURL yields an empty path.
func (c *Cache) Get(ctx context.Context, client *http.Client, section string, id int64, coverURL string) (string, error) {
	if coverURL == "" {
		return "", nil
	}

	cachePath := filepath.Join(c.cacheDir, c.coverFilename(section, id, coverURL))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := c.fetchAndCache(ctx, client, coverURL, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// Has reports whether the cover is already on disk.
func (c *Cache) Has(section string, id int64, coverURL string) bool {
	if coverURL == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(c.cacheDir, c.coverFilename(section, id, coverURL)))
	return err == nil
}

// Invalidate removes every cached cover of an item.
func (c *Cache) Invalidate(section string, id int64) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("%s_%d_*", section, id))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) coverFilename(section string, id int64, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("%s_%d_%x.img", section, id, hash[:8])
}

func (c *Cache) fetchAndCache(ctx context.Context, client *http.Client, url, cachePath string) error {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Network(err)
	}
	req.Header.Set("User-Agent", "Shelfront/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.HTTPStatus(resp.StatusCode, "")
	}

	// Write to a temp file in the same directory, then rename.
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, io.LimitReader(resp.Body, maxCoverBytes)); err != nil {
		return errors.Network(err)
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, cachePath)
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
