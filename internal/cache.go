package internal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	"maunium.net/go/mautrix/id"
)

const cacheVersion = "2"

// CacheManager caches raw pagination pages on disk, keyed by room and token.
// The cache is tied to one database file and is invalid once it changes.
type CacheManager struct {
	cacheDir string
	mu       sync.Mutex
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	DatabasePath    string    `json:"database_path" yaml:"database_path"`
	DatabaseModTime time.Time `json:"database_mod_time" yaml:"database_mod_time"`
	CacheVersion    string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// PageIndexEntry represents a cached page in the index
type PageIndexEntry struct {
	RoomID     id.RoomID `yaml:"room_id"`
	From       string    `yaml:"from,omitempty"`
	Limit      int       `yaml:"limit"`
	End        string    `yaml:"end,omitempty"`
	EventCount int       `yaml:"event_count"`
	File       string    `yaml:"file"`
}

// PageIndex represents the YAML index of all cached pages
type PageIndex struct {
	Pages    []PageIndexEntry `yaml:"pages"`
	Metadata CacheMetadata    `yaml:"metadata"`
}

// cachedPage keeps each event as a string so the bytes survive re-encoding.
type cachedPage struct {
	Chunk []string `json:"chunk"`
	End   string   `json:"end,omitempty"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the page index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "pages.yaml")
}

func pageFileName(roomID id.RoomID, from string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", roomID, from, limit)))
	return "page_" + hex.EncodeToString(sum[:8]) + ".json"
}

// GetPagePath returns the path to a page's cache file
func (cm *CacheManager) GetPagePath(roomID id.RoomID, from string, limit int) string {
	return filepath.Join(cm.cacheDir, pageFileName(roomID, from, limit))
}

// IsCacheValid checks if the cache is valid for the given database
func (cm *CacheManager) IsCacheValid(dbPath string) (bool, error) {
	if _, err := os.Stat(cm.GetIndexPath()); os.IsNotExist(err) {
		return false, nil
	}

	index, err := cm.LoadIndex()
	if err != nil {
		return false, nil
	}
	if index.Metadata.CacheVersion != cacheVersion || index.Metadata.DatabasePath != dbPath {
		return false, nil
	}

	dbInfo, err := os.Stat(dbPath)
	if err != nil {
		return false, nil
	}
	return index.Metadata.DatabaseModTime.Equal(dbInfo.ModTime()), nil
}

// LoadIndex loads the page index
func (cm *CacheManager) LoadIndex() (*PageIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index PageIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return &index, nil
}

// SaveIndex saves the page index
func (cm *CacheManager) SaveIndex(index *PageIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(cm.GetIndexPath(), data, 0644)
}

// SavePage stores a page and records it in the index. An index that belongs
// to another database state is started over.
func (cm *CacheManager) SavePage(roomID id.RoomID, from string, limit int, page *MessagesPage, dbPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}
	dbInfo, err := os.Stat(dbPath)
	if err != nil {
		return err
	}

	var index *PageIndex
	if existing, err := cm.LoadIndex(); err == nil && existing.Metadata.DatabasePath == dbPath &&
		existing.Metadata.CacheVersion == cacheVersion && existing.Metadata.DatabaseModTime.Equal(dbInfo.ModTime()) {
		index = existing
		index.Metadata.UpdatedAt = time.Now()
	}
	if index == nil {
		cm.removePageFiles()
		index = &PageIndex{
			Pages: make([]PageIndexEntry, 0),
			Metadata: CacheMetadata{
				DatabasePath:    dbPath,
				DatabaseModTime: dbInfo.ModTime(),
				CacheVersion:    cacheVersion,
				CreatedAt:       time.Now(),
				UpdatedAt:       time.Now(),
			},
		}
	}

	stored := cachedPage{Chunk: make([]string, len(page.Chunk)), End: page.End}
	for i, raw := range page.Chunk {
		stored.Chunk[i] = string(raw)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	file := pageFileName(roomID, from, limit)
	if err := os.WriteFile(filepath.Join(cm.cacheDir, file), data, 0644); err != nil {
		return &StorageError{Path: file, Op: "write", Err: err}
	}

	entry := PageIndexEntry{RoomID: roomID, From: from, Limit: limit, End: page.End, EventCount: len(page.Chunk), File: file}
	found := false
	for i := range index.Pages {
		if index.Pages[i].File == file {
			index.Pages[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Pages = append(index.Pages, entry)
	}
	return cm.SaveIndex(index)
}

// LoadPage loads a cached page. ok is false when the page isn't cached.
func (cm *CacheManager) LoadPage(roomID id.RoomID, from string, limit int) (*MessagesPage, bool, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	path := cm.GetPagePath(roomID, from, limit)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Path: path, Op: "read", Err: err}
	}

	var stored cachedPage
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, &StorageError{Path: path, Op: "parse", Err: err}
	}
	page := &MessagesPage{Chunk: make([]json.RawMessage, len(stored.Chunk)), End: stored.End}
	for i, raw := range stored.Chunk {
		page.Chunk[i] = json.RawMessage(raw)
	}
	return page, true, nil
}

func (cm *CacheManager) removePageFiles() {
	index, err := cm.LoadIndex()
	if err != nil {
		return
	}
	for _, entry := range index.Pages {
		_ = os.Remove(filepath.Join(cm.cacheDir, entry.File))
	}
}

// ClearCache clears the cache
func (cm *CacheManager) ClearCache() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.removePageFiles()
	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CachingSource is an EventSource that serves pages from a CacheManager
// while the cache is valid for dbPath, and fills it on misses.
type CachingSource struct {
	source EventSource
	cache  *CacheManager
	dbPath string
}

// NewCachingSource wraps source with cache
func NewCachingSource(source EventSource, cache *CacheManager, dbPath string) *CachingSource {
	return &CachingSource{source: source, cache: cache, dbPath: dbPath}
}

// Messages implements EventSource
func (c *CachingSource) Messages(ctx context.Context, roomID id.RoomID, from string, limit int) (*MessagesPage, error) {
	if valid, _ := c.cache.IsCacheValid(c.dbPath); valid {
		page, ok, err := c.cache.LoadPage(roomID, from, limit)
		if err != nil {
			LogWarn("Ignoring unreadable cached page: %v", err)
		} else if ok {
			LogDebug("Cache hit for %s from %q", roomID, from)
			return page, nil
		}
	}

	page, err := c.source.Messages(ctx, roomID, from, limit)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SavePage(roomID, from, limit, page, c.dbPath); err != nil {
		LogWarn("Failed to cache page for %s: %v", roomID, err)
	}
	return page, nil
}
