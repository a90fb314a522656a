package fakes

import (
	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/keychain"
)

// FakeKeychain is a map-backed keychain.Store.
type FakeKeychain struct {
	Secrets map[string]string

	// Errors maps keys to errors returned by any operation on that key.
	Errors map[string]error

	// GetFunc, SetFunc and DeleteFunc override individual methods when set.
	GetFunc    func(key string) (string, error)
	SetFunc    func(key, value string) error
	DeleteFunc func(key string) error

	GetCalls    []string
	SetCalls    []string
	DeleteCalls []string
}

// NewFakeKeychain creates an empty fake keychain.
func NewFakeKeychain() *FakeKeychain {
	return &FakeKeychain{
		Secrets: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

func (f *FakeKeychain) Get(key string) (string, error) {
	f.GetCalls = append(f.GetCalls, key)
	if f.GetFunc != nil {
		return f.GetFunc(key)
	}
	if err := f.Errors[key]; err != nil {
		return "", err
	}
	value, ok := f.Secrets[key]
	if !ok {
		return "", &cwerrors.SecretStoreError{
			Op:  "get",
			Key: key,
			Err: keychain.ErrItemNotFound,
		}
	}
	return value, nil
}

func (f *FakeKeychain) Set(key, value string) error {
	f.SetCalls = append(f.SetCalls, key)
	if f.SetFunc != nil {
		return f.SetFunc(key, value)
	}
	if err := f.Errors[key]; err != nil {
		return err
	}
	f.Secrets[key] = value
	return nil
}

// Delete removes the key. Deleting a missing key is not an error, matching
// the real store.
func (f *FakeKeychain) Delete(key string) error {
	f.DeleteCalls = append(f.DeleteCalls, key)
	if f.DeleteFunc != nil {
		return f.DeleteFunc(key)
	}
	if err := f.Errors[key]; err != nil {
		return err
	}
	delete(f.Secrets, key)
	return nil
}

// Has reports whether the key is present.
func (f *FakeKeychain) Has(key string) bool {
	_, ok := f.Secrets[key]
	return ok
}
