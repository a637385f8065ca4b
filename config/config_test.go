package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaults_Valid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[tools]
validator = "/opt/vulkan/bin/spirv-val"

[compile]
target = "compute"
opt_level = 2
debug_info = false
local_size = [8, 8, 1]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Defaults()
	want.Tools.Validator = "/opt/vulkan/bin/spirv-val"
	want.Compile.Target = "compute"
	want.Compile.OptLevel = 2
	want.Compile.DebugInfo = false
	want.Compile.LocalSize = [3]uint32{8, 8, 1}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "[compile\n", "failed to parse TOML"},
		{"unknown key", "[compile]\ncolour = true\n", "unknown keys: compile.colour"},
		{"target", "[compile]\ntarget = \"tessellation\"\n", `target "tessellation"`},
		{"opt level", "[compile]\nopt_level = 4\n", "opt_level must be between 0 and 3"},
		{"local size", "[compile]\nlocal_size = [0, 1, 1]\n", "local_size[0] must be positive"},
		{"empty tool", "[tools]\ncross = \" \"\n", "[tools].cross must not be empty"},
		{"glsl version", "[compile]\nglsl_version = 4\n", "not a GLSL version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "shaders", "post")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover without file: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want defaults", cfg.Path)
	}

	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, []byte("[compile]\nglsl_es = true\nglsl_version = 310\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if !cfg.Compile.GLSLES || cfg.Compile.GLSLVersion != 310 {
		t.Errorf("compile = %+v", cfg.Compile)
	}
}

func TestLoad_PrefixesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("[compile]\nopt_level = -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.HasPrefix(err.Error(), path+":") {
		t.Errorf("Load error = %v, want path prefix", err)
	}
}
