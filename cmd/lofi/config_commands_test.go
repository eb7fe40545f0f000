package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lofi/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("LOFI_ACCELERATION", "")
	t.Chdir(base)

	target := filepath.Join(base, "conf", "lofi.toml")
	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, stdout, "Config path: "+target)
	requireContains(t, stdout, "Listen address: 127.0.0.1:48716")
	requireContains(t, stdout, "Configuration valid")
	for _, dir := range []string{"uploads", "converted"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s to be created relative to the working directory: %v", dir, err)
		}
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})
	if err := os.WriteFile(env.configPath, []byte("[transcode]\nacceleration = \"quantum\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected invalid acceleration to fail")
	}
}

func TestConfigValidateMissingFileUsesDefaults(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})
	missing := filepath.Join(env.workDir, "absent.toml")

	stdout, _, err := runCLI(t, []string{"config", "validate"}, missing)
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, stdout, "defaults were used")
}

func TestDotEnvOverridesAcceleration(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubBehaviour{})
	os.Unsetenv("LOFI_ACCELERATION")
	if err := os.WriteFile(filepath.Join(env.workDir, ".env"), []byte("LOFI_ACCELERATION=android\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LOFI_ACCELERATION") })

	stdout, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, stdout, "Acceleration: android")
}
