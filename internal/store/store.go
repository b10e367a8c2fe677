// Package store provides the key-value storage the client keeps between views.
//
// Two scopes exist, matching how a browser storefront keeps its state:
//
//   - tab-scoped: lives as long as the process (MemoryStore). Holds the session token.
//   - durable: survives restarts (LocalStore, SQLite). Holds the checkout handoff.
//
// Both satisfy KV so controllers take whichever scope they need and tests substitute
// a MemoryStore.
package store

// KV is a string key-value store.
type KV interface {
	// Get returns the value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
