package yamlutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/resumesite/pdfexport/internal/yamlutil"
)

type inner struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type testConfig struct {
	Name   string `yaml:"name"`
	Server inner  `yaml:"server"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
	}{
		{"valid", []byte("name: site\nserver:\n  port: 9000\n"), &testConfig{}, nil},
		{"nil data", nil, &testConfig{}, yamlutil.ErrNilData},
		{"nil destination", []byte("name: x"), nil, yamlutil.ErrNilDestination},
		{"too large", []byte("name: " + strings.Repeat("x", yamlutil.MaxInputSize)), &testConfig{}, yamlutil.ErrInputTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UnmarshalStrict() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("UnmarshalStrict() unexpected error: %v", err)
			}
		})
	}
}

func TestUnmarshalStrict_UnknownField(t *testing.T) {
	t.Parallel()

	err := yamlutil.UnmarshalStrict([]byte("name: x\nportt: 1\n"), &testConfig{})
	if err == nil {
		t.Fatal("UnmarshalStrict() accepted an unknown field")
	}
}

func TestUnmarshalStrict_KeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg := testConfig{Name: "default", Server: inner{Port: 8080, Host: "127.0.0.1"}}
	if err := yamlutil.UnmarshalStrict([]byte("server:\n  port: 9000\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "default" || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("absent fields were reset: %+v", cfg)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
}

// ---------------------------------------------------------------------------
// TestMarshal
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	out, err := yamlutil.Marshal(testConfig{Name: "site", Server: inner{Port: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "name: site") || !strings.Contains(string(out), "  port: 1") {
		t.Errorf("Marshal() = %q", out)
	}
}
