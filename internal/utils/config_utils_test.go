package utils

import (
	"reflect"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("CCSWITCH_TEST_VAR", "from-env")

	if got := GetEnvOrDefault("CCSWITCH_TEST_VAR", "fallback"); got != "from-env" {
		t.Errorf("GetEnvOrDefault() = %v, want from-env", got)
	}
	if got := GetEnvOrDefault("CCSWITCH_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnvOrDefault() = %v, want fallback", got)
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		expected     int
	}{
		{name: "valid integer", value: "3001", defaultValue: 0, expected: 3001},
		{name: "negative integer", value: "-5", defaultValue: 0, expected: -5},
		{name: "empty value", value: "", defaultValue: 42, expected: 42},
		{name: "non-numeric value", value: "abc", defaultValue: 42, expected: 42},
		{name: "float value", value: "3.14", defaultValue: 42, expected: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseInteger(tt.value, tt.defaultValue); got != tt.expected {
				t.Errorf("ParseInteger() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseBoolean(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		expected     bool
	}{
		{name: "true", value: "true", defaultValue: false, expected: true},
		{name: "mixed case", value: "True", defaultValue: false, expected: true},
		{name: "one", value: "1", defaultValue: false, expected: true},
		{name: "yes with whitespace", value: " yes ", defaultValue: false, expected: true},
		{name: "on", value: "on", defaultValue: false, expected: true},
		{name: "false", value: "false", defaultValue: true, expected: false},
		{name: "zero", value: "0", defaultValue: true, expected: false},
		{name: "off", value: "off", defaultValue: true, expected: false},
		{name: "empty uses default", value: "", defaultValue: true, expected: true},
		{name: "garbage uses default", value: "maybe", defaultValue: true, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseBoolean(tt.value, tt.defaultValue); got != tt.expected {
				t.Errorf("ParseBoolean() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseArray(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "empty value", value: "", expected: nil},
		{name: "single entry", value: "https://example.com", expected: []string{"https://example.com"}},
		{name: "multiple entries", value: "a,b,c", expected: []string{"a", "b", "c"}},
		{name: "entries with whitespace", value: " a , b ", expected: []string{"a", "b"}},
		{name: "empty entries dropped", value: "a,,b,", expected: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseArray(tt.value); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseArray() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{name: "shorter than limit", input: "short", maxLen: 10, expected: "short"},
		{name: "exactly at limit", input: "exact", maxLen: 5, expected: "exact"},
		{name: "truncated", input: "truncate me", maxLen: 8, expected: "truncate..."},
		{name: "multibyte runes", input: "日本語テスト", maxLen: 3, expected: "日本語..."},
		{name: "zero limit", input: "anything", maxLen: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateString() = %v, want %v", got, tt.expected)
			}
		})
	}
}
