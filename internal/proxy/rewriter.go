package proxy

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"ccswitch/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const dataPrefix = "data: "

// maxSSELineSize bounds a single SSE line; tool inputs can carry whole file
// contents, so this is generous.
const maxSSELineSize = 10 * 1024 * 1024

// toolUseBuffer accumulates the streamed JSON fragments of one tool_use
// content block between its start and stop events.
type toolUseBuffer struct {
	id    string
	name  string
	input strings.Builder
}

// StreamRewriter rewrites one provider SSE stream line-by-line: it buffers
// in-flight tool_use blocks, validates their accumulated input on stop, and
// normalizes alias model identifiers on message_start.
//
// A rewriter belongs to exactly one response stream. Lines must be fed in
// arrival order; concurrent streams each get their own rewriter so tool
// buffers can never leak across requests.
type StreamRewriter struct {
	buffers map[int64]*toolUseBuffer
}

// NewStreamRewriter creates a rewriter with an empty buffer map.
func NewStreamRewriter() *StreamRewriter {
	return &StreamRewriter{
		buffers: make(map[int64]*toolUseBuffer),
	}
}

// RewriteLine consumes one SSE text line and returns the zero or more lines
// to emit downstream. It never fails: anything it cannot make sense of is
// passed through unchanged.
func (r *StreamRewriter) RewriteLine(line string) []string {
	if !strings.HasPrefix(line, dataPrefix) {
		return []string{line}
	}

	payload := strings.TrimPrefix(line, dataPrefix)
	if payload == "[DONE]" {
		return []string{line}
	}
	if payload == "" || !gjson.Valid(payload) {
		return []string{line}
	}

	switch gjson.Get(payload, "type").String() {
	case "message_start":
		return []string{r.rewriteMessageStart(line, payload)}
	case "content_block_start":
		return r.handleBlockStart(line, payload)
	case "content_block_delta":
		return r.handleBlockDelta(line, payload)
	case "content_block_stop":
		return r.handleBlockStop(line, payload)
	default:
		return []string{line}
	}
}

// rewriteMessageStart replaces an alias model id with its canonical form.
func (r *StreamRewriter) rewriteMessageStart(line, payload string) string {
	model := gjson.Get(payload, "message.model").String()
	if model == "" {
		return line
	}

	canonical, changed := utils.NormalizeModelID(model)
	if !changed {
		return line
	}

	rewritten, err := sjson.Set(payload, "message.model", canonical)
	if err != nil {
		logrus.WithError(err).Debug("Failed to rewrite model id, passing line through")
		return line
	}
	return dataPrefix + rewritten
}

// handleBlockStart swallows tool_use starts and opens a buffer for the
// block's index. Text and thinking blocks pass through.
func (r *StreamRewriter) handleBlockStart(line, payload string) []string {
	if gjson.Get(payload, "content_block.type").String() != "tool_use" {
		return []string{line}
	}

	index := gjson.Get(payload, "index").Int()
	r.buffers[index] = &toolUseBuffer{
		id:   gjson.Get(payload, "content_block.id").String(),
		name: gjson.Get(payload, "content_block.name").String(),
	}
	return nil
}

// handleBlockDelta accumulates input_json_delta fragments into the buffer
// for the block's index. Deltas for non-tool blocks pass through.
func (r *StreamRewriter) handleBlockDelta(line, payload string) []string {
	if gjson.Get(payload, "delta.type").String() != "input_json_delta" {
		return []string{line}
	}

	index := gjson.Get(payload, "index").Int()
	buffer, ok := r.buffers[index]
	if !ok {
		return []string{line}
	}

	buffer.input.WriteString(gjson.Get(payload, "delta.partial_json").String())
	return nil
}

// handleBlockStop resolves a buffered tool block: a valid input is emitted
// as a reconstructed tool_use start with the parsed input object, an invalid
// one becomes a synthetic text block describing the failure. Either way the
// original stop line follows and the buffer is dropped.
func (r *StreamRewriter) handleBlockStop(line, payload string) []string {
	index := gjson.Get(payload, "index").Int()
	buffer, ok := r.buffers[index]
	if !ok {
		return []string{line}
	}
	delete(r.buffers, index)

	validation := ValidateToolInput(buffer.name, buffer.input.String())
	if validation.Valid {
		return []string{reconstructedToolStart(index, buffer, validation.Input), line}
	}

	logrus.WithFields(logrus.Fields{
		"tool":  buffer.name,
		"index": index,
	}).Warn(validation.Reason)
	return []string{syntheticTextStart(index, validation.Reason), line}
}

// reconstructedToolStart builds a content_block_start carrying the complete
// parsed tool input in place of the suppressed incremental events.
func reconstructedToolStart(index int64, buffer *toolUseBuffer, input json.RawMessage) string {
	event := map[string]any{
		"type":  "content_block_start",
		"index": index,
		"content_block": map[string]any{
			"type":  "tool_use",
			"id":    buffer.id,
			"name":  buffer.name,
			"input": input,
		},
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		// Input already passed json.Unmarshal, so this cannot happen;
		// degrade to an empty-input block rather than dropping the event.
		encoded = []byte(`{"type":"content_block_start","index":` + strconv.FormatInt(index, 10) + `,"content_block":{"type":"tool_use","input":{}}}`)
	}
	return dataPrefix + string(encoded)
}

// syntheticTextStart builds a text block explaining a failed tool call so
// the conversation degrades instead of breaking.
func syntheticTextStart(index int64, reason string) string {
	event := map[string]any{
		"type":  "content_block_start",
		"index": index,
		"content_block": map[string]any{
			"type": "text",
			"text": reason,
		},
	}
	encoded, _ := json.Marshal(event)
	return dataPrefix + string(encoded)
}

// Rewrite copies an SSE stream from reader to writer, rewriting each line.
// Output is flushed after every source line so downstream SSE clients see
// events as they arrive. The relative order of pass-through and synthetic
// lines is preserved exactly.
func (r *StreamRewriter) Rewrite(reader io.Reader, writer io.Writer, flush func()) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxSSELineSize)

	for scanner.Scan() {
		for _, out := range r.RewriteLine(scanner.Text()) {
			if _, err := io.WriteString(writer, out+"\n"); err != nil {
				return err
			}
		}
		if flush != nil {
			flush()
		}
	}
	return scanner.Err()
}
