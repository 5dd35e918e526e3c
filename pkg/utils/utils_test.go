package utils

import (
	"errors"
	"testing"

	"github.com/swiftwave-org/swctl/pkg/types"
)

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid hostname",
			input:   "web-api-2",
			wantErr: false,
		},
		{
			name:    "empty hostname",
			input:   "",
			wantErr: true,
		},
		{
			name:    "too long hostname",
			input:   "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijklmnop",
			wantErr: true,
		},
		{
			name:    "starts with hyphen",
			input:   "-web",
			wantErr: true,
		},
		{
			name:    "ends with hyphen",
			input:   "web-",
			wantErr: true,
		},
		{
			name:    "uppercase letters",
			input:   "Web",
			wantErr: true,
		},
		{
			name:    "dots",
			input:   "web.internal",
			wantErr: true,
		},
		{
			name:    "consecutive hyphens",
			input:   "web--blue",
			wantErr: false,
		},
		{
			name:    "single character",
			input:   "w",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostname(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHostname() error = %v, wantErr %v", err, tt.wantErr)
			}
			var verr *types.ValidationError
			if err != nil && !errors.As(err, &verr) {
				t.Errorf("ValidateHostname() error %T is not a *types.ValidationError", err)
			}
		})
	}
}
