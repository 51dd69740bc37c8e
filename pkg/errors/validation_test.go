package errors

import (
	"strings"
	"testing"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Sunset over the bay", false},
		{"empty", "", false},
		{"tab", "a\tb", false},
		{"unicode", "Café ✨ [1920x1080]", false},

		{"newline", "line one\nline two", true},
		{"carriage return", "a\rb", true},
		{"null byte", "a\x00b", true},
		{"bell", "a\x07b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTitle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateTitle(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "out.png", false},
		{"nested", "captions/2024/out.gif", false},
		{"absolute", "/tmp/out.jpg", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 501), true},
		{"null byte", "out\x00.png", true},
		{"control char", "out\x01.png", true},
		{"directory", "captions/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHexColor(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"#fff", false},
		{"#000000", false},
		{"#1a2B3c", false},

		{"", true},
		{"fff", true},
		{"#ffff", true},
		{"#ggg", true},
		{"#1234567", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateHexColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHexColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
