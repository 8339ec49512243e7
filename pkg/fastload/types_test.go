package fastload_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vvka-141/pgfastload/pkg/fastload"
)

func TestLoadConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    fastload.LoadConfig
		wantError bool
	}{
		{
			name:   "valid config",
			config: fastload.LoadConfig{InputPath: "./data", Workers: 4},
		},
		{
			name:      "missing input path",
			config:    fastload.LoadConfig{Workers: 4},
			wantError: true,
		},
		{
			name:      "zero workers",
			config:    fastload.LoadConfig{InputPath: "./data"},
			wantError: true,
		},
		{
			name:      "negative timeout",
			config:    fastload.LoadConfig{InputPath: "./data", Workers: 1, Timeout: -time.Second},
			wantError: true,
		},
		{
			name:      "bad exclude pattern",
			config:    fastload.LoadConfig{InputPath: "./data", Workers: 1, ExcludeSchemas: []string{"(unclosed"}},
			wantError: true,
		},
		{
			name:   "null marker and escape",
			config: fastload.LoadConfig{InputPath: "./data", Workers: 1, NullMarker: "@null@", Escape: `\`},
		},
		{
			name:      "null marker with newline",
			config:    fastload.LoadConfig{InputPath: "./data", Workers: 1, NullMarker: "a\nb"},
			wantError: true,
		},
		{
			name:      "multi-character escape",
			config:    fastload.LoadConfig{InputPath: "./data", Workers: 1, Escape: "\\\\"},
			wantError: true,
		},
		{
			name:      "multiple validation errors",
			config:    fastload.LoadConfig{Timeout: -time.Second, UpdateInterval: -time.Second},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantError {
				if err == nil {
					t.Fatalf("Validate() expected error, got nil")
				}
				if !errors.Is(err, fastload.ErrInvalidConfig) {
					t.Errorf("Validate() error type = %v, want %v", err, fastload.ErrInvalidConfig)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestExportConfig_Validate(t *testing.T) {
	valid := fastload.ExportConfig{SourceDSN: "sqlserver://sa@localhost", OutputDir: "out", Workers: 2}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	missing := fastload.ExportConfig{}
	err := missing.Validate()
	if !errors.Is(err, fastload.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
	}
}

func TestAuthMethod_String(t *testing.T) {
	tests := []struct {
		method fastload.AuthMethod
		want   string
		valid  bool
	}{
		{fastload.AuthMethodStandard, "Standard", true},
		{fastload.AuthMethodAWSIAM, "AWS IAM", true},
		{fastload.AuthMethodGoogleIAM, "Google IAM", true},
		{fastload.AuthMethodAzureEntraID, "Azure Entra ID", true},
		{fastload.AuthMethod(42), "Unknown(42)", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.method.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.method.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}
