package commands

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd.Use != "goldeneval" {
		t.Errorf("Use = %q, want %q", cmd.Use, "goldeneval")
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("descriptions should not be empty")
	}

	want := map[string]bool{"run": false, "datasets": false, "formats": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	cmd := NewRootCmd()

	tests := []struct {
		flagName  string
		shorthand string
		defValue  string
	}{
		{"config", "", ""},
		{"db", "", ""},
		{"verbose", "v", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("--%s flag not found", tt.flagName)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("--%s shorthand = %q, want %q", tt.flagName, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("--%s default = %q, want %q", tt.flagName, flag.DefValue, tt.defValue)
			}
		})
	}
}

func TestRunCmd_Flags(t *testing.T) {
	cmd := NewRunCmd()

	tests := []struct {
		flagName string
		defValue string
	}{
		{"golden", ""},
		{"golden-dataset", ""},
		{"actual", ""},
		{"format", "text"},
		{"output", ""},
		{"workers", "0"},
		{"fail-under", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("--%s flag not found", tt.flagName)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("--%s default = %q, want %q", tt.flagName, flag.DefValue, tt.defValue)
			}
		})
	}
}

func TestRunCmd_InvalidArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing actual",
			args:    []string{"run", "--golden", "g.json"},
			wantErr: "actual",
		},
		{
			name:    "missing golden",
			args:    []string{"run", "--actual", "a.csv"},
			wantErr: "golden",
		},
		{
			name:    "both golden sources",
			args:    []string{"run", "--golden", "g.json", "--golden-dataset", "geo", "--actual", "a.csv"},
			wantErr: "golden",
		},
		{
			name:    "unknown format",
			args:    []string{"run", "--golden", "g.json", "--actual", "a.csv", "--format", "xml"},
			wantErr: "unknown format",
		},
		{
			name:    "fail-under out of range",
			args:    []string{"run", "--golden", "g.json", "--actual", "a.csv", "--fail-under", "150"},
			wantErr: "--fail-under",
		},
		{
			name:    "positional args",
			args:    []string{"run", "extra"},
			wantErr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDatasetsCmd_Args(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"import needs two args", []string{"datasets", "import", "geo"}},
		{"show needs a name", []string{"datasets", "show"}},
		{"delete takes one name", []string{"datasets", "delete", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, tt.args...); err == nil {
				t.Error("expected argument error")
			}
		})
	}
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, part := range []string{"goldeneval 1.2.3", "abc123", "2026-01-01"} {
		if !strings.Contains(out, part) {
			t.Errorf("output missing %q:\n%s", part, out)
		}
	}
}

func TestFormatsCmd(t *testing.T) {
	out, _, err := execute(t, "formats")
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	for _, f := range []string{"csv", "json", "md", "pdf", "txt", "xlsx"} {
		if !strings.Contains(out, f+"\n") {
			t.Errorf("formats output missing %q:\n%s", f, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer sentence", 10, "a longe..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
