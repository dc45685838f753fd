// Package abstractions defines the persistence interfaces used by the
// application layer. Implementations live in sibling packages.
package abstractions

// KeyValue is a flat string-to-string record store. It mirrors the
// semantics of browser local storage: reads of absent keys are not
// errors, and writes replace the whole value for a key.
type KeyValue interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys lists all stored keys in unspecified order.
	Keys() ([]string, error)
}
