package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	text := `I'll navigate there now.

<tool>
<tool_name>browser_navigate</tool_name>
<arguments>
  <user>alice</user>
  <url>https://example.com</url>
</arguments>
</tool>`

	call, remaining, err := ParseToolCall(text)
	require.NoError(t, err)
	assert.Equal(t, "browser_navigate", call.ToolName)
	assert.Equal(t, "I'll navigate there now.", remaining)
	assert.Contains(t, string(call.ArgumentsXML()), "<url>https://example.com</url>")
}

func TestParseToolCallNoCall(t *testing.T) {
	_, remaining, err := ParseToolCall("just prose, no tools")
	assert.Error(t, err)
	assert.Equal(t, "just prose, no tools", remaining)
}

func TestParseToolCallMissingName(t *testing.T) {
	_, _, err := ParseToolCall("<tool><arguments><x>1</x></arguments></tool>")
	assert.Error(t, err)
}

func TestParseToolCallUnescapedAmpersand(t *testing.T) {
	text := `<tool>
<tool_name>terminal_execute</tool_name>
<arguments>
  <user>alice</user>
  <command>cd /srv && ls</command>
</arguments>
</tool>`

	call, _, err := ParseToolCall(text)
	require.NoError(t, err)
	assert.Equal(t, "terminal_execute", call.ToolName)
}

func TestParseToolCallOversized(t *testing.T) {
	huge := "<tool><tool_name>x</tool_name><arguments>" +
		strings.Repeat("a", maxXMLSize) + "</arguments></tool>"
	_, _, err := ParseToolCall(huge)
	assert.Error(t, err)
}

func TestHasToolCall(t *testing.T) {
	assert.True(t, HasToolCall("<tool><tool_name>x</tool_name></tool>"))
	assert.False(t, HasToolCall("no call here"))
}

func TestEscapeUnescapedAmpersands(t *testing.T) {
	in := []byte("a & b &amp; c &#38; d &lt;")
	out := string(escapeUnescapedAmpersands(in))
	assert.Equal(t, "a &amp; b &amp; c &#38; d &lt;", out)
}
