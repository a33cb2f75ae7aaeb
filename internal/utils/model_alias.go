package utils

// modelAliasMap maps alias model identifiers to their canonical dated ids.
// Clients frequently send "-thinking" variants or undated names; upstream
// providers only accept the dated identifiers.
var modelAliasMap = map[string]string{
	"claude-opus-4-5-thinking":   "claude-opus-4-5-20251101",
	"claude-opus-4-5":            "claude-opus-4-5-20251101",
	"claude-sonnet-4-5-thinking": "claude-sonnet-4-5-20250929",
	"claude-sonnet-4-5":          "claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-thinking":  "claude-haiku-4-5-20251001",
	"claude-haiku-4-5":           "claude-haiku-4-5-20251001",
}

// NormalizeModelID resolves a model alias to its canonical identifier.
// Unknown identifiers are returned unchanged.
func NormalizeModelID(model string) (string, bool) {
	if canonical, ok := modelAliasMap[model]; ok {
		return canonical, true
	}
	return model, false
}
