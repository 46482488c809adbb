package clients

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ListCache represents the last client list fetched from a backend.
type ListCache struct {
	Server    string    `json:"server"`
	Clients   []Client  `json:"clients"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CachePath returns the cache file path for a backend URL.
func CachePath(server string) string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "odoodash", cacheKey(server)+".json")
}

func cacheKey(server string) string {
	key := server
	if u, err := url.Parse(server); err == nil && u.Host != "" {
		key = u.Host
	}
	out := []rune(key)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}

// LoadCache loads the cached list at path.
// Returns nil if the cache doesn't exist or belongs to another server.
// The caller always refreshes afterwards; the cache is only for instant startup.
func LoadCache(path, server string) *ListCache {
	// Shared lock blocks while another instance writes.
	fileLock := flock.New(path + ".lock")
	if err := fileLock.RLock(); err != nil {
		return nil
	}
	defer fileLock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var cache ListCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}
	if cache.Server != server {
		return nil
	}
	return &cache
}

// SaveCache replaces the cached list at path.
func SaveCache(path, server string, list []Client) error {
	data, err := json.Marshal(ListCache{
		Server:    server,
		Clients:   list,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	fileLock := flock.New(path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return err
	}
	defer fileLock.Unlock()

	// Write atomically: temp file then rename
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
