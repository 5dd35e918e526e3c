package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	Key   string
	Value string
}

type config struct {
	Replicas  int
	Hostnames []string
	Entries   []entry
	Args      map[string]string
	Limits    struct{ Memory uint64 }
}

func testSchema() Schema[*config] {
	return Schema[*config]{
		Scalar("replicas", func(c *config) int { return c.Replicas }),
		Set("hostnames", func(c *config) []string { return c.Hostnames }),
		Keyed("entries", func(c *config) []entry { return c.Entries }, func(e entry) string { return e.Key }),
		Map("args", func(c *config) map[string]string { return c.Args }),
		Scalar("limits", func(c *config) struct{ Memory uint64 } { return c.Limits }),
	}
}

func base() *config {
	c := &config{
		Replicas:  2,
		Hostnames: []string{"a", "b"},
		Entries:   []entry{{"PORT", "80"}, {"MODE", "prod"}},
		Args:      map[string]string{"GO": "1.23"},
	}
	c.Limits.Memory = 512
	return c
}

func TestSchemaDiff(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config)
		want   []string
	}{
		{
			name:   "identical",
			mutate: func(c *config) {},
		},
		{
			name:   "scalar",
			mutate: func(c *config) { c.Replicas = 3 },
			want:   []string{"replicas"},
		},
		{
			name:   "set reordered",
			mutate: func(c *config) { c.Hostnames = []string{"b", "a"} },
		},
		{
			name:   "set element replaced",
			mutate: func(c *config) { c.Hostnames = []string{"a", "c"} },
			want:   []string{"hostnames"},
		},
		{
			name:   "set multiplicity",
			mutate: func(c *config) { c.Hostnames = []string{"a", "a"} },
			want:   []string{"hostnames"},
		},
		{
			name:   "keyed reordered",
			mutate: func(c *config) { c.Entries = []entry{{"MODE", "prod"}, {"PORT", "80"}} },
		},
		{
			name:   "keyed value changed",
			mutate: func(c *config) { c.Entries[0].Value = "8080" },
			want:   []string{"entries"},
		},
		{
			name:   "keyed renamed",
			mutate: func(c *config) { c.Entries[1].Key = "ENV" },
			want:   []string{"entries"},
		},
		{
			name:   "keyed added",
			mutate: func(c *config) { c.Entries = append(c.Entries, entry{"DEBUG", "1"}) },
			want:   []string{"entries"},
		},
		{
			name:   "keyed duplicate key",
			mutate: func(c *config) { c.Entries = []entry{{"PORT", "80"}, {"PORT", "80"}} },
			want:   []string{"entries"},
		},
		{
			name:   "map value",
			mutate: func(c *config) { c.Args["GO"] = "1.22" },
			want:   []string{"args"},
		},
		{
			name:   "struct scalar",
			mutate: func(c *config) { c.Limits.Memory = 1024 },
			want:   []string{"limits"},
		},
		{
			name: "several",
			mutate: func(c *config) {
				c.Replicas = 1
				c.Args = nil
			},
			want: []string{"replicas", "args"},
		},
	}

	schema := testSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := base(), base()
			tt.mutate(b)

			assert.Equal(t, tt.want, schema.Diff(a, b))
			assert.Equal(t, len(tt.want) > 0, schema.Changed(a, b))
		})
	}
}

func TestEmptyEqualsNil(t *testing.T) {
	schema := testSchema()
	a := &config{Hostnames: nil, Entries: []entry{}, Args: map[string]string{}}
	b := &config{Hostnames: []string{}, Entries: nil, Args: nil}

	assert.False(t, schema.Changed(a, b))
}

func TestKeyedDuplicatesOnBothSides(t *testing.T) {
	f := Keyed("entries", func(c *config) []entry { return c.Entries }, func(e entry) string { return e.Key })

	a := &config{Entries: []entry{{"A", "1"}, {"A", "2"}}}
	b := &config{Entries: []entry{{"A", "2"}, {"A", "1"}}}
	assert.True(t, f.Equal(a, b))

	c := &config{Entries: []entry{{"A", "2"}, {"A", "2"}}}
	assert.False(t, f.Equal(a, c))
}

func TestFunc(t *testing.T) {
	f := Func("even", func(a, b int) bool { return a%2 == b%2 })
	assert.Equal(t, "even", f.Name())
	assert.True(t, f.Equal(2, 4))
	assert.False(t, f.Equal(1, 4))
}
