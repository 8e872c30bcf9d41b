package keystorefakes

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nomanstine/AutoDocs/keystore"
)

var _ keystore.Store = (*FakeKeystore)(nil)

// FakeKeystore is an in-memory keystore for tests. Optional error hooks let
// tests simulate a failing storage medium.
type FakeKeystore struct {
	values map[string]string
	lock   sync.RWMutex

	GetErr error // returned by Get when set
	SetErr error // returned by Set when set

	// Mutation counters for asserting write-through behaviour.
	SetCalls       int
	ClearAuthCalls int
}

func NewFakeKeystore() *FakeKeystore {
	return &FakeKeystore{values: make(map[string]string)}
}

func (f *FakeKeystore) Get(key string) (string, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.GetErr != nil {
		return "", f.GetErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", keystore.ErrNotFound
	}
	return value, nil
}

func (f *FakeKeystore) Set(key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.SetCalls++
	if f.SetErr != nil {
		return f.SetErr
	}
	f.values[key] = value
	return nil
}

func (f *FakeKeystore) Delete(key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if _, ok := f.values[key]; !ok {
		return errors.New("not found")
	}
	delete(f.values, key)
	return nil
}

func (f *FakeKeystore) ClearAuth() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ClearAuthCalls++
	delete(f.values, keystore.KeyAccessToken)
	delete(f.values, keystore.KeyUser)
	delete(f.values, keystore.KeyRefreshToken)
	return nil
}

func (f *FakeKeystore) Close() error { return nil }

// Len reports the number of stored keys.
func (f *FakeKeystore) Len() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.values)
}
