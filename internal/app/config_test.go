package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestResolveGlobalOptionsPrecedence(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("AICAL_DATA", "env.db")
	t.Setenv("AICAL_OUTPUT", "jsonl")

	userCfg := filepath.Join(tmp, ".config", "aical", "config.toml")
	if err := os.MkdirAll(filepath.Dir(userCfg), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userCfg, []byte("data='user.db'\noutput='plain'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, ".aical.toml"), []byte("data='project.db'\nfields='id,title'\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	defaults := &globalOptions{Profile: "default", SchemaVersion: "v1"}
	cmd := newTestCmd()
	if err := cmd.ParseFlags([]string{"--data", "flag.db", "--json"}); err != nil {
		t.Fatal(err)
	}
	defaults.Data = "flag.db"
	defaults.JSON = true

	resolved, err := resolveGlobalOptions(cmd, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Data != "flag.db" {
		t.Fatalf("expected flag data path, got %q", resolved.Data)
	}
	if !resolved.JSON || resolved.JSONL || resolved.Plain {
		t.Fatalf("expected JSON mode from flag override, got json=%v jsonl=%v plain=%v", resolved.JSON, resolved.JSONL, resolved.Plain)
	}
	if resolved.Fields != "id,title" {
		t.Fatalf("expected fields from project config, got %q", resolved.Fields)
	}
}

func TestResolveGlobalOptionsProfile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("AICAL_DATA", "")
	t.Setenv("AICAL_OUTPUT", "")
	t.Setenv("AICAL_PROFILE", "work")

	cfg := "data='base.db'\n[profiles.work]\ndata='work.db'\n"
	if err := os.WriteFile(filepath.Join(tmp, ".aical.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	defaults := &globalOptions{Profile: "default", SchemaVersion: "v1"}
	resolved, err := resolveGlobalOptions(newTestCmd(), defaults)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Profile != "work" {
		t.Fatalf("expected work profile, got %q", resolved.Profile)
	}
	if resolved.Data != "work.db" {
		t.Fatalf("expected profile data path, got %q", resolved.Data)
	}
}

func TestResolveGlobalOptionsWeekStartPreference(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("AICAL_DATA", "")
	t.Setenv("AICAL_OUTPUT", "")
	t.Setenv("AICAL_PROFILE", "")

	cfg := "[preferences]\nweek_start='monday'\n"
	if err := os.WriteFile(filepath.Join(tmp, ".aical.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := resolveGlobalOptions(newTestCmd(), &globalOptions{Profile: "default", SchemaVersion: "v1"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.WeekStart != "monday" {
		t.Fatalf("expected monday week start from preferences, got %q", resolved.WeekStart)
	}
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("jsonl", false, "")
	cmd.Flags().Bool("plain", false, "")
	cmd.Flags().String("fields", "", "")
	cmd.Flags().Bool("quiet", false, "")
	cmd.Flags().Bool("verbose", false, "")
	cmd.Flags().Bool("no-color", false, "")
	cmd.Flags().Bool("no-input", false, "")
	cmd.Flags().String("profile", "default", "")
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("data", "", "")
	cmd.Flags().String("tz", "", "")
	cmd.Flags().Duration("timeout", 15*time.Second, "")
	cmd.Flags().String("schema-version", "v1", "")
	return cmd
}
