// Package bolt provides a bbolt backed keystore. Values live in a single
// bucket inside a file under the user's data folder, so credentials survive
// restarts the same way the web client's localStorage does.
package bolt

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/nomanstine/AutoDocs/keystore"
)

var bktKeys = []byte("keys")

// Keystore is a wrapper around bolt.DB
type Keystore struct {
	db *bolt.DB
}

var _ keystore.Store = (*Keystore)(nil)

// Open opens (creating if necessary) the keystore file at path.
func Open(path string) (*Keystore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[bolt.Open] opening keystore file")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bktKeys)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "[bolt.Open] creating bucket")
	}
	return &Keystore{db: db}, nil
}

// Close closes the underlying database file.
func (k *Keystore) Close() error {
	return k.db.Close()
}

func (k *Keystore) Get(key string) (string, error) {
	var value []byte
	err := k.db.View(func(tx *bolt.Tx) error {
		value = tx.Bucket(bktKeys).Get([]byte(key))
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[Keystore.Get] db.View")
	}
	if value == nil {
		return "", keystore.ErrNotFound
	}
	return string(value), nil
}

func (k *Keystore) Set(key, value string) error {
	err := k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bktKeys).Put([]byte(key), []byte(value))
	})
	return errors.Wrap(err, "[Keystore.Set] db.Update")
}

func (k *Keystore) Delete(key string) error {
	err := k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bktKeys).Delete([]byte(key))
	})
	return errors.Wrap(err, "[Keystore.Delete] db.Update")
}

// ClearAuth deletes the three auth keys in one transaction so no partial
// state is ever visible on disk.
func (k *Keystore) ClearAuth() error {
	err := k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktKeys)
		for _, key := range []string{keystore.KeyAccessToken, keystore.KeyUser, keystore.KeyRefreshToken} {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "[Keystore.ClearAuth] db.Update")
}
