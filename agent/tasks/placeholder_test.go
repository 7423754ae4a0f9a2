package tasks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSubstitute_Basic(t *testing.T) {
	out := Substitute("Research {topic} in {depth} detail", map[string]string{
		"topic": "solar power",
		"depth": "full",
	})
	assert.Equal(t, "Research solar power in full detail", out)
}

func TestSubstitute_MissingKeysLeftLiteral(t *testing.T) {
	out := Substitute("Research {topic} for {audience}", map[string]string{"topic": "wind"})
	assert.Equal(t, "Research wind for {audience}", out)
}

func TestSubstitute_NilParams(t *testing.T) {
	text := "no {placeholders} touched"
	assert.Equal(t, text, Substitute(text, nil))
}

func TestSubstitute_NonRecursive(t *testing.T) {
	// A value containing a placeholder pattern must not be expanded again.
	out := Substitute("{a}", map[string]string{"a": "{b}", "b": "leaked"})
	assert.Equal(t, "{b}", out)
}

func TestSubstitute_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "key")
		value := rapid.StringMatching(`[a-zA-Z0-9 ]{0,20}`).Draw(t, "value")
		prefix := rapid.StringMatching(`[a-zA-Z ]{0,10}`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[a-zA-Z ]{0,10}`).Draw(t, "suffix")

		text := prefix + "{" + key + "}" + suffix
		out := Substitute(text, map[string]string{key: value})

		assert.Equal(t, prefix+value+suffix, out)
		// Text without braces passes through untouched.
		assert.Equal(t, prefix+suffix, Substitute(prefix+suffix, map[string]string{key: value}))
		_ = strings.Contains(out, value)
	})
}
