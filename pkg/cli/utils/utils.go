package utils

import (
	"fmt"
	"strings"
)

// KeyValue is one KEY=VALUE argument.
type KeyValue struct {
	Key   string
	Value string
}

// ParseKeyValues parses arguments of the form KEY=VALUE. The value may be
// empty and may itself contain '='. Order is kept.
// Example: ["PORT=8080", "DSN=user=a"] -> [{PORT 8080} {DSN user=a}]
func ParseKeyValues(args []string) ([]KeyValue, error) {
	out := make([]KeyValue, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument, expected KEY=VALUE: %s", arg)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key in argument: %s", arg)
		}
		out = append(out, KeyValue{Key: key, Value: value})
	}
	return out, nil
}

// ParsePairs parses a comma separated list of key=value pairs into a map.
// Example: "containers=read,images=read_write" -> {"containers": "read", "images": "read_write"}
func ParsePairs(s string) (map[string]string, error) {
	result := make(map[string]string)
	if s == "" {
		return result, nil
	}

	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid pair format, expected key=value: %s", pair)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			return nil, fmt.Errorf("empty key in pair: %s", pair)
		}
		if value == "" {
			return nil, fmt.Errorf("empty value in pair: %s", pair)
		}
		if strings.Contains(value, "=") {
			return nil, fmt.Errorf("invalid value format, contains additional equals sign: %s", value)
		}
		result[key] = value
	}

	return result, nil
}
