package utils

import "testing"

func TestNormalizeModelID(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		expected   string
		normalized bool
	}{
		{
			name:       "opus thinking alias",
			model:      "claude-opus-4-5-thinking",
			expected:   "claude-opus-4-5-20251101",
			normalized: true,
		},
		{
			name:       "opus undated alias",
			model:      "claude-opus-4-5",
			expected:   "claude-opus-4-5-20251101",
			normalized: true,
		},
		{
			name:       "sonnet thinking alias",
			model:      "claude-sonnet-4-5-thinking",
			expected:   "claude-sonnet-4-5-20250929",
			normalized: true,
		},
		{
			name:       "haiku undated alias",
			model:      "claude-haiku-4-5",
			expected:   "claude-haiku-4-5-20251001",
			normalized: true,
		},
		{
			name:       "already canonical",
			model:      "claude-opus-4-5-20251101",
			expected:   "claude-opus-4-5-20251101",
			normalized: false,
		},
		{
			name:       "unknown model passes through",
			model:      "gpt-4o",
			expected:   "gpt-4o",
			normalized: false,
		},
		{
			name:       "empty model",
			model:      "",
			expected:   "",
			normalized: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, normalized := NormalizeModelID(tt.model)
			if got != tt.expected {
				t.Errorf("NormalizeModelID() = %v, want %v", got, tt.expected)
			}
			if normalized != tt.normalized {
				t.Errorf("NormalizeModelID() normalized = %v, want %v", normalized, tt.normalized)
			}
		})
	}
}
