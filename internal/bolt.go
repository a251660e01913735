package internal

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

var localStorageBucket = []byte("local_storage")

// BoltKV is a KVStore kept in a single bbolt bucket
type BoltKV struct {
	db *bolt.DB
}

// OpenBoltKV opens (creating if needed) the bolt file at path
func OpenBoltKV(path string) (*BoltKV, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, &StorageError{Backend: BackendBolt, Op: "open", Key: path, Err: err}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, &StorageError{Backend: BackendBolt, Op: "open", Key: path, Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(localStorageBucket)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, &StorageError{Backend: BackendBolt, Op: "open", Key: path, Err: err}
	}
	return &BoltKV{db: db}, nil
}

// Get returns the value stored under key
func (b *BoltKV) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(localStorageBucket)
		if bk == nil {
			return nil
		}
		if v := bk.Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, &StorageError{Backend: BackendBolt, Op: "get", Key: key, Err: err}
	}
	return value, found, nil
}

// Set stores value under key
func (b *BoltKV) Set(key, value string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk, e := tx.CreateBucketIfNotExists(localStorageBucket)
		if e != nil {
			return e
		}
		return bk.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return &StorageError{Backend: BackendBolt, Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes key
func (b *BoltKV) Delete(key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(localStorageBucket)
		if bk == nil {
			return nil
		}
		return bk.Delete([]byte(key))
	})
	if err != nil {
		return &StorageError{Backend: BackendBolt, Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Keys lists stored keys in byte order
func (b *BoltKV) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(localStorageBucket)
		if bk == nil {
			return nil
		}
		return bk.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, &StorageError{Backend: BackendBolt, Op: "keys", Err: err}
	}
	return keys, nil
}

// Close closes the bolt file
func (b *BoltKV) Close() error {
	return b.db.Close()
}
