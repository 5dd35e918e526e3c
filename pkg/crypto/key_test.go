package crypto

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateKey_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "state.key")

	key, source, err := LoadOrCreateKey(KeyOptions{FilePath: path})
	if err != nil {
		t.Fatalf("LoadOrCreateKey: %v", err)
	}
	if source != KeySourceGenerated {
		t.Fatalf("source = %s, want %s", source, KeySourceGenerated)
	}
	if len(key) != KeySize {
		t.Fatalf("expected %d-byte key, got %d", KeySize, len(key))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	again, source, err := LoadOrCreateKey(KeyOptions{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if source != KeySourceFile {
		t.Fatalf("source = %s, want %s", source, KeySourceFile)
	}
	if string(again) != string(key) {
		t.Fatal("second load returned a different key")
	}
}

func TestLoadOrCreateKey_EnvWins(t *testing.T) {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	t.Setenv("SWCTL_TEST_STATE_KEY", base64.StdEncoding.EncodeToString(key))
	path := filepath.Join(t.TempDir(), "state.key")

	got, source, err := LoadOrCreateKey(KeyOptions{EnvVar: "SWCTL_TEST_STATE_KEY", FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	if source != KeySourceEnv || string(got) != string(key) {
		t.Fatalf("got source %s and key %x", source, got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("key file should not be created when the env var is set")
	}
}

func TestLoadOrCreateKey_Invalid(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.key")
	if err := os.WriteFile(short, []byte(base64.StdEncoding.EncodeToString([]byte("short"))), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadOrCreateKey(KeyOptions{FilePath: short}); err == nil {
		t.Fatal("expected error for short key")
	}

	t.Setenv("SWCTL_TEST_STATE_KEY", "not base64!")
	if _, _, err := LoadOrCreateKey(KeyOptions{EnvVar: "SWCTL_TEST_STATE_KEY", FilePath: short}); err == nil {
		t.Fatal("expected error for bad env key")
	}

	if _, _, err := LoadOrCreateKey(KeyOptions{}); err == nil {
		t.Fatal("expected error without a file path")
	}
}
