package google

import (
	"context"
	"os"
	"testing"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		name string
		base string
		year int
		want string
	}{
		{name: "plain base", base: "Statement", year: 2024, want: "2024 Statement"},
		{name: "already prefixed", base: "2023 Statement", year: 2024, want: "2023 Statement"},
		{name: "trims whitespace", base: "  Statement  ", year: 2024, want: "2024 Statement"},
		{name: "empty base", base: "", year: 2024, want: ""},
		{name: "four digit word is not a year prefix", base: "1234abc", year: 2024, want: "2024 1234abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestNewFromEnvMissingSpreadsheetID(t *testing.T) {
	oldID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	defer os.Setenv("GOOGLE_SPREADSHEET_ID", oldID)
	os.Unsetenv("GOOGLE_SPREADSHEET_ID")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnvMissingCredentials(t *testing.T) {
	saved := map[string]string{
		"GOOGLE_SPREADSHEET_ID":          os.Getenv("GOOGLE_SPREADSHEET_ID"),
		"GOOGLE_SERVICE_ACCOUNT_JSON":    os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		"GOOGLE_SERVICE_ACCOUNT_FILE":    os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		"GOOGLE_APPLICATION_CREDENTIALS": os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
	defer func() {
		for k, v := range saved {
			if v != "" {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	}()

	os.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	os.Unsetenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	os.Unsetenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	os.Unsetenv("GOOGLE_APPLICATION_CREDENTIALS")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
