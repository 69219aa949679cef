package migrate

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionsCmd(t *testing.T) {
	cmd := versionsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "1") || !strings.Contains(out.String(), "VERSION") {
		t.Fatalf("expected version table, got: %s", out.String())
	}
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()
	want := map[string]bool{"up": false, "down": false, "versions": false}
	for _, c := range cmd.Commands() {
		want[c.Name()] = true
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if f := cmd.Commands(); len(f) != 3 {
		t.Errorf("expected 3 subcommands, got %d", len(f))
	}
}
