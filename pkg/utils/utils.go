// Package utils holds small checks shared by the draft editor and the CLI.
package utils

import (
	"github.com/swiftwave-org/swctl/pkg/types"
)

// MaxHostnameLength is the longest hostname a container accepts.
const MaxHostnameLength = 63

// ValidateHostname checks that hostname is a DNS-1123 label: 1-63
// lowercase letters, digits or hyphens, not starting or ending with a hyphen.
func ValidateHostname(hostname string) error {
	if len(hostname) < 1 || len(hostname) > MaxHostnameLength {
		return types.NewFieldValidationError("hostname", "must be between 1 and %d characters", MaxHostnameLength)
	}

	if hostname[0] == '-' || hostname[len(hostname)-1] == '-' {
		return types.NewFieldValidationError("hostname", "cannot start or end with a hyphen")
	}

	for _, c := range hostname {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return types.NewFieldValidationError("hostname", "can only contain lowercase letters, digits and hyphens")
		}
	}

	return nil
}
