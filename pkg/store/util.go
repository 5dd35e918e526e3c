package store

import (
	"fmt"
	"strings"
)

const keyRoot = "localstorage"

// MakeKey creates the storage key of key within namespace.
func MakeKey(namespace, key string) []byte {
	return []byte(fmt.Sprintf("%s/%s/%s", keyRoot, namespace, key))
}

// MakePrefix creates the prefix shared by every key of namespace.
func MakePrefix(namespace string) []byte {
	return []byte(fmt.Sprintf("%s/%s/", keyRoot, namespace))
}

// ParseKey splits a storage key into namespace and key.
func ParseKey(raw []byte) (namespace, key string, ok bool) {
	parts := strings.SplitN(string(raw), "/", 3)
	if len(parts) != 3 || parts[0] != keyRoot {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func validateNamespace(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if strings.Contains(namespace, "/") {
		return fmt.Errorf("namespace %q must not contain '/'", namespace)
	}
	return nil
}
