package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"run"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestResolveConfigPathDefault(t *testing.T) {
	t.Setenv("LUCY_CONFIG", "")
	if got := resolveConfigPath("./lucy.yaml"); got != "./lucy.yaml" {
		t.Fatalf("expected default config path to pass through unchanged, got %q", got)
	}
}

func TestResolveConfigPathHonorsFlagOverride(t *testing.T) {
	if got := resolveConfigPath("/etc/lucy/custom.yaml"); got != "/etc/lucy/custom.yaml" {
		t.Fatalf("expected explicit --config value to win, got %q", got)
	}
}
