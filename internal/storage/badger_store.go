// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a key has no entity.
var ErrNotFound = errors.New("entity not found")

// Entity represents any storable entity with an ID
type Entity interface {
	GetID() string
}

// BadgerStore provides JSON storage for entities under a key prefix.
// The *Txn variants let callers group writes from several stores into one
// badger transaction.
type BadgerStore struct {
	prefix string
}

func NewBadgerStore(prefix string) *BadgerStore {
	return &BadgerStore{prefix: prefix}
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) PutTxn(txn *badger.Txn, entity Entity) error {
	if entity.GetID() == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	return txn.Set(s.makeKey(entity.GetID()), data)
}

// CreateTxn stores an entity that must not exist yet.
func (s *BadgerStore) CreateTxn(txn *badger.Txn, entity Entity) error {
	_, err := txn.Get(s.makeKey(entity.GetID()))
	if err == nil {
		return fmt.Errorf("entity already exists: %s", entity.GetID())
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return s.PutTxn(txn, entity)
}

func (s *BadgerStore) GetTxn(txn *badger.Txn, id string, entity Entity) error {
	item, err := txn.Get(s.makeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, entity)
	})
}

// ListTxn decodes every entity under the prefix, in key order, into results
// (a pointer to a slice).
func (s *BadgerStore) ListTxn(txn *badger.Txn, results interface{}) error {
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(s.prefix + ":")
	var values []json.RawMessage

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		values = append(values, val)
	}

	// Marshal collected values into final result
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, results); err != nil {
		return fmt.Errorf("listing entities: %w", err)
	}
	return nil
}
