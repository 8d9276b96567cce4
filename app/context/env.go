package context

// Environment abstracts access to process environment variables, so that
// tests can substitute an in-memory implementation.
type Environment interface {
	// Get returns the value of the variable named key, or "" if it is unset.
	Get(key string) string
	// Set assigns val to the variable named key.
	Set(key, val string) error
}
