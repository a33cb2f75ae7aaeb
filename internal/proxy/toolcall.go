package proxy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// toolRequiredKeys lists the top-level keys a tool invocation must carry.
// Tools not listed here are accepted as long as the input object is non-empty.
var toolRequiredKeys = map[string][]string{
	"Read":  {"file_path"},
	"Write": {"file_path", "content"},
	"Edit":  {"file_path", "old_string", "new_string"},
	"Glob":  {"pattern"},
	"Grep":  {"pattern"},
	"Bash":  {"command"},
	"Task":  {"description", "prompt", "subagent_type"},
}

// ToolValidation is the outcome of checking an accumulated tool input.
type ToolValidation struct {
	Valid   bool
	Reason  string
	Missing []string
	// Input holds the parsed input object when Valid is true.
	Input json.RawMessage
}

// ValidateToolInput checks the accumulated JSON string for a tool call.
// Empty input, unparseable JSON, an empty object, and missing required keys
// are each reported with a distinct reason so the synthetic error block can
// tell the client what actually went wrong.
func ValidateToolInput(toolName, inputJSON string) ToolValidation {
	trimmed := strings.TrimSpace(inputJSON)
	if trimmed == "" {
		return ToolValidation{Reason: fmt.Sprintf("Tool call failed: tool %q received no input", toolName)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return ToolValidation{Reason: fmt.Sprintf("Tool call failed: Invalid JSON in %q tool input", toolName)}
	}

	required, known := toolRequiredKeys[toolName]
	if !known {
		if len(fields) == 0 {
			return ToolValidation{Reason: fmt.Sprintf("Tool call failed: tool %q received an empty input object", toolName)}
		}
		return ToolValidation{Valid: true, Input: json.RawMessage(trimmed)}
	}

	// A known tool with an empty object falls through to the required-keys
	// check so the reason names every missing field.

	var missing []string
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return ToolValidation{
			Reason:  fmt.Sprintf("Tool call failed: tool %q is missing required field(s): %s", toolName, strings.Join(missing, ", ")),
			Missing: missing,
		}
	}

	return ToolValidation{Valid: true, Input: json.RawMessage(trimmed)}
}
