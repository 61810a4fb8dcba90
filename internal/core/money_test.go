package core

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "simple decimal", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "integer", input: "100", want: 10000},
		{name: "single decimal place", input: "5.5", want: 550},
		{name: "third decimal rounds down", input: "12.344", want: 1234},
		{name: "third decimal rounds up", input: "12.345", want: 1235},
		{name: "leading whitespace", input: "  7.00", want: 700},
		{name: "smallest amount", input: "0.01", want: 1},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "sub-cent zero rejected", input: "0.004", wantErr: true},
		{name: "negative rejected", input: "-5.00", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "garbage rejected", input: "abc", wantErr: true},
		{name: "two separators rejected", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %v, want error", tt.input, got)
				}
				if !IsValidation(err) {
					t.Errorf("ParseAmount(%q) error = %v, want validation error", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.Cents != tt.want {
				t.Errorf("ParseAmount(%q) = %d cents, want %d", tt.input, got.Cents, tt.want)
			}
		})
	}
}

func TestParseSignedAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "0", want: 0},
		{input: "0.00", want: 0},
		{input: "-12.34", want: -1234},
		{input: "42500.00", want: 4250000},
		{input: "nonsense", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSignedAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSignedAmount(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSignedAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.Cents != tt.want {
				t.Errorf("ParseSignedAmount(%q) = %d cents, want %d", tt.input, got.Cents, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{cents: 1234, want: "12.34"},
		{cents: 100, want: "1.00"},
		{cents: 5, want: "0.05"},
		{cents: 0, want: "0.00"},
		{cents: -1234, want: "-12.34"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
