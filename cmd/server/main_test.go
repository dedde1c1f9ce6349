package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n" +
		"SANCTUM_TEST_A=alpha\n" +
		"export SANCTUM_TEST_B=\"beta\"\n" +
		"SANCTUM_TEST_C=from-file\n" +
		"malformed line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("SANCTUM_TEST_A", "")
	os.Unsetenv("SANCTUM_TEST_A")
	t.Setenv("SANCTUM_TEST_B", "")
	os.Unsetenv("SANCTUM_TEST_B")
	t.Setenv("SANCTUM_TEST_C", "from-env")

	loadEnvFile(path)

	if got := os.Getenv("SANCTUM_TEST_A"); got != "alpha" {
		t.Errorf("SANCTUM_TEST_A = %q, want alpha", got)
	}
	if got := os.Getenv("SANCTUM_TEST_B"); got != "beta" {
		t.Errorf("SANCTUM_TEST_B = %q, want beta", got)
	}
	if got := os.Getenv("SANCTUM_TEST_C"); got != "from-env" {
		t.Errorf("SANCTUM_TEST_C = %q, want from-env (environment wins)", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	loadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
}
