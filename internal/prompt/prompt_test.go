package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecritic/codecritic/internal/catalog"
)

func TestCodeReview(t *testing.T) {
	mgr, err := NewManager()
	require.NoError(t, err)

	code := "def add(a, b):\n    return a + b\n"
	out, err := mgr.CodeReview(code, catalog.LangPython)
	require.NoError(t, err)

	assert.Contains(t, out, "expert software engineer")
	assert.Contains(t, out, "```python\n"+code)
	assert.Contains(t, out, "## 📝 Summary")

	// The language id drives both fenced blocks.
	assert.Equal(t, 2, strings.Count(out, "```python"))
}

func TestCodeReview_JavaScript(t *testing.T) {
	mgr, err := NewManager()
	require.NoError(t, err)

	out, err := mgr.CodeReview("const x = 1;", catalog.LangJavaScript)
	require.NoError(t, err)
	assert.Contains(t, out, "```javascript")
	assert.Contains(t, out, "const x = 1;")
}
