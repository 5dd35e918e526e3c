package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyValues(t *testing.T) {
	got, err := ParseKeyValues([]string{"PORT=8080", "DSN=user=a host=b", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, []KeyValue{
		{Key: "PORT", Value: "8080"},
		{Key: "DSN", Value: "user=a host=b"},
		{Key: "EMPTY", Value: ""},
	}, got)

	_, err = ParseKeyValues([]string{"PORT"})
	assert.Error(t, err)

	_, err = ParseKeyValues([]string{" =x"})
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", input: "", want: map[string]string{}},
		{name: "single", input: "containers=read", want: map[string]string{"containers": "read"}},
		{
			name:  "spaces trimmed",
			input: "containers = read, images=read_write",
			want:  map[string]string{"containers": "read", "images": "read_write"},
		},
		{name: "missing value", input: "containers=", wantErr: true},
		{name: "missing equals", input: "containers", wantErr: true},
		{name: "empty key", input: "=read", wantErr: true},
		{name: "extra equals", input: "a=b=c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePairs(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
