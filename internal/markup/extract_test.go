package markup_test

import (
	"errors"
	"testing"

	"nrcms/internal/markup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "siblings", input: "{{a}} {{b}}", want: []string{"a", "b"}},
		{name: "nested", input: "{{outer {{inner}}}}", want: []string{"outer {{inner}}"}},
		{name: "mixed", input: "{{hello}} {{world}} {{outer {{inner}}}}", want: []string{"hello", "world", "outer {{inner}}"}},
		{name: "no tags", input: "just text", want: nil},
		{name: "empty body", input: "{{}}", want: []string{""}},
		{name: "text between", input: "lead {{Title|x}} middle {{Paragraph|y}} tail", want: []string{"Title|x", "Paragraph|y"}},
		{name: "deep nesting", input: "{{Page|{{Page|{{Name|x}}}}}}", want: []string{"Page|{{Page|{{Name|x}}}}"}},
		{name: "multiline", input: "{{Page|\n{{Name|P}}\n}}", want: []string{"Page|\n{{Name|P}}\n"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := markup.Extract(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractUnbalanced(t *testing.T) {
	for _, input := range []string{
		"{{unterminated",
		"{{hello}} {{there",
		"{{a {{b}}",
		"stray}} {{a}}",
		"{{a}}}}",
	} {
		t.Run(input, func(t *testing.T) {
			got, err := markup.Extract(input)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, markup.ErrUnbalanced))

			var structural *markup.StructuralError
			assert.True(t, errors.As(err, &structural))
		})
	}
}

func TestExtractReportsOpenDepth(t *testing.T) {
	_, err := markup.Extract("{{a {{b")
	var structural *markup.StructuralError
	require.True(t, errors.As(err, &structural))
	assert.Equal(t, 2, structural.Depth)
	assert.Equal(t, -1, structural.Offset)
}
