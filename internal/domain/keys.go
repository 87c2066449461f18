package domain

// KeyPrefix is the global storage key prefix. Overridden once at startup from
// config (storage.key_prefix) before any repository is constructed.
var KeyPrefix = "retriever:"

// SetKeyPrefix overrides the global key prefix. Call from main only.
func SetKeyPrefix(prefix string) {
	if prefix != "" {
		KeyPrefix = prefix
	}
}
