package config

import (
	"os"
	"testing"
)

func TestGetEnv(t *testing.T) {
	os.Setenv("MEDSUPPLY_TEST_VAR", "value")
	defer os.Unsetenv("MEDSUPPLY_TEST_VAR")

	if got := GetEnv("MEDSUPPLY_TEST_VAR", "default"); got != "value" {
		t.Errorf("GetEnv() = %v, want value", got)
	}
	if got := GetEnv("MEDSUPPLY_MISSING_VAR", "default"); got != "default" {
		t.Errorf("GetEnv() = %v, want default", got)
	}
}

func TestRequireEnv(t *testing.T) {
	os.Setenv("MEDSUPPLY_REQUIRED_VAR", "value")
	defer os.Unsetenv("MEDSUPPLY_REQUIRED_VAR")

	if got := RequireEnv("MEDSUPPLY_REQUIRED_VAR"); got != "value" {
		t.Errorf("RequireEnv() = %v, want value", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("RequireEnv() should panic for missing variable")
		}
	}()
	RequireEnv("MEDSUPPLY_DEFINITELY_MISSING")
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"unset defaults to development", "", "development"},
		{"production", "production", "production"},
		{"uppercase is lowered", "PRODUCTION", "production"},
		{"staging", "staging", "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				os.Unsetenv("MEDSUPPLY_SERVER_ENVIRONMENT")
			} else {
				os.Setenv("MEDSUPPLY_SERVER_ENVIRONMENT", tt.value)
				defer os.Unsetenv("MEDSUPPLY_SERVER_ENVIRONMENT")
			}

			if got := GetEnvironment(); got != tt.want {
				t.Errorf("GetEnvironment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvironmentPredicates(t *testing.T) {
	tests := []struct {
		env              string
		isDevelopment    bool
		isStaging        bool
		isProduction     bool
		isProductionLike bool
	}{
		{"development", true, false, false, false},
		{"staging", false, true, false, true},
		{"production", false, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			os.Setenv("MEDSUPPLY_SERVER_ENVIRONMENT", tt.env)
			defer os.Unsetenv("MEDSUPPLY_SERVER_ENVIRONMENT")

			if got := IsDevelopment(); got != tt.isDevelopment {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.isDevelopment)
			}
			if got := IsStaging(); got != tt.isStaging {
				t.Errorf("IsStaging() = %v, want %v", got, tt.isStaging)
			}
			if got := IsProduction(); got != tt.isProduction {
				t.Errorf("IsProduction() = %v, want %v", got, tt.isProduction)
			}
			if got := IsProductionLike(); got != tt.isProductionLike {
				t.Errorf("IsProductionLike() = %v, want %v", got, tt.isProductionLike)
			}
		})
	}
}
