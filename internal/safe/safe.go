// internal/safe/safe.go
package safe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrInvalidHash     = errors.New("invalid content hash")
)

const (
	metaPrefix = "blobmeta:"
	dataPrefix = "blob:"
)

// ContentMeta stores metadata about stored content
type ContentMeta struct {
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

// Safe is a content-addressed blob store kept inside badger. Blobs are never
// deleted: history snapshots may reference them forever.
type Safe struct {
	db    *badger.DB
	cache *lru.Cache[string, []byte]
	cm    *compressionManager
}

// Options configures Safe behavior
type Options struct {
	CacheSize   int // Number of items to cache
	Compression CompressionOptions
}

// New creates a new Safe instance
func New(db *badger.DB, opts Options) (*Safe, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}

	// Use reasonable defaults
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	if opts.Compression == (CompressionOptions{}) {
		opts.Compression = DefaultCompressionOptions()
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	cm, err := newCompressionManager(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating compression manager: %w", err)
	}

	return &Safe{
		db:    db,
		cache: cache,
		cm:    cm,
	}, nil
}

// StoreTxn writes content inside an existing transaction. Writing the same
// content twice is a no-op.
func (s *Safe) StoreTxn(txn *badger.Txn, content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}
	hash := HashContent(content)

	if s.cache.Contains(hash) {
		return hash, nil
	}
	if _, err := txn.Get([]byte(metaPrefix + hash)); err == nil {
		return hash, nil
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("checking existence: %w", err)
	}

	data, compressed := s.cm.compress(content)
	meta := ContentMeta{
		Hash:       hash,
		Size:       int64(len(content)),
		Compressed: compressed,
		CreatedAt:  time.Now(),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}

	if err := txn.Set([]byte(dataPrefix+hash), data); err != nil {
		return "", fmt.Errorf("writing content: %w", err)
	}
	if err := txn.Set([]byte(metaPrefix+hash), metaData); err != nil {
		return "", fmt.Errorf("storing metadata: %w", err)
	}

	return hash, nil
}

// GetTxn reads content inside an existing transaction.
func (s *Safe) GetTxn(txn *badger.Txn, hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, ErrInvalidHash
	}

	// Check cache first
	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	meta, err := getMeta(txn, hash)
	if err != nil {
		return nil, err
	}

	item, err := txn.Get([]byte(dataPrefix + hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	content, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}

	// Decompress if needed
	if meta.Compressed {
		content, err = s.cm.decompress(content)
		if err != nil {
			return nil, fmt.Errorf("decompressing content: %w", err)
		}
	}

	// Verify hash
	if HashContent(content) != hash {
		return nil, fmt.Errorf("content hash mismatch")
	}

	s.cache.Add(hash, content)
	return content, nil
}

// Exists checks if content exists
func (s *Safe) Exists(hash string) (bool, error) {
	if !isValidHash(hash) {
		return false, ErrInvalidHash
	}

	// Check cache first
	if s.cache.Contains(hash) {
		return true, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getMeta(txn, hash)
		return err
	})
	if errors.Is(err, ErrContentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Meta returns the stored metadata for hash.
func (s *Safe) Meta(hash string) (ContentMeta, error) {
	var meta ContentMeta
	if !isValidHash(hash) {
		return meta, ErrInvalidHash
	}
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = getMeta(txn, hash)
		return err
	})
	return meta, err
}

// HashContent is the sha256 hex digest used as the blob address.
func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func isValidHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func getMeta(txn *badger.Txn, hash string) (ContentMeta, error) {
	var meta ContentMeta

	item, err := txn.Get([]byte(metaPrefix + hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return meta, ErrContentNotFound
	}
	if err != nil {
		return meta, err
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	return meta, err
}
