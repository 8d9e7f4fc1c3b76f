package explorer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
)

// Cache stores raw ABI JSON by chain and address. Entries are kept in memory
// and, when opened with a path, persisted to LevelDB.
type Cache struct {
	db *leveldb.DB

	mu  sync.RWMutex
	mem map[string]string
}

// OpenCache opens a cache. An empty path gives a memory-only cache.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{mem: make(map[string]string)}
	if path == "" {
		return c, nil
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open abi cache: %w", err)
	}
	c.db = db
	return c, nil
}

func cacheKey(chain string, address common.Address) string {
	return chain + ":" + strings.ToLower(address.Hex())
}

// Get returns the cached ABI JSON if present.
func (c *Cache) Get(chain string, address common.Address) (string, bool, error) {
	key := cacheKey(chain, address)

	c.mu.RLock()
	raw, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return raw, true, nil
	}
	if c.db == nil {
		return "", false, nil
	}

	v, err := c.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read abi cache: %w", err)
	}

	c.mu.Lock()
	c.mem[key] = string(v)
	c.mu.Unlock()
	return string(v), true, nil
}

// Put stores ABI JSON for an address.
func (c *Cache) Put(chain string, address common.Address, raw string) error {
	key := cacheKey(chain, address)

	c.mu.Lock()
	c.mem[key] = raw
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	if err := c.db.Put([]byte(key), []byte(raw), nil); err != nil {
		return fmt.Errorf("write abi cache: %w", err)
	}
	return nil
}

// Close releases the LevelDB handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
