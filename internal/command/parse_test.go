package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want LineClass
	}{
		{"", LineBlank},
		{"   \t", LineBlank},
		{"# quantify the items", LineComment},
		{"def replace_paragraph(a, b):", LineDefinition},
		{"replace_paragraph(0, 1, 'text')", LineCall},
		{"del_image(2)", LineCall},
		{"I will now edit the slide.", LineProse},
		{"  replace_paragraph(0, 1, 'indented')", LineProse},
		{"Replace_Paragraph(0, 1, 'x')", LineProse},
		{"del_paragraph()", LineProse},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.line), "line %q", tc.line)
	}
}

func editCode(t *testing.T, err error) string {
	t.Helper()
	edit := errinfo.AsEdit(err)
	require.NotNil(t, edit, "expected edit error, got %v", err)
	return edit.Code
}

func TestParseValidCalls(t *testing.T) {
	cmd, err := Parse(`replace_paragraph(0, 1, 'new **text**')`)
	require.NoError(t, err)
	assert.Equal(t, ReplaceParagraph{DivID: 0, ParagraphID: 1, Text: "new **text**"}, cmd)

	cmd, err = Parse(`del_paragraph(2, 3)`)
	require.NoError(t, err)
	assert.Equal(t, DelParagraph{DivID: 2, ParagraphID: 3}, cmd)

	cmd, err = Parse(`clone_paragraph(1, 0)`)
	require.NoError(t, err)
	assert.Equal(t, CloneParagraph{DivID: 1, ParagraphID: 0}, cmd)

	cmd, err = Parse(`del_image(4)`)
	require.NoError(t, err)
	assert.Equal(t, DelImage{FigureID: 4}, cmd)

	cmd, err = Parse(`replace_image(1, "images/photo.png")`)
	require.NoError(t, err)
	assert.Equal(t, ReplaceImage{ImgID: 1, ImagePath: "images/photo.png"}, cmd)
}

func TestParseIntegralFloatIndex(t *testing.T) {
	cmd, err := Parse(`del_paragraph(0, 2.0)`)
	require.NoError(t, err)
	assert.Equal(t, DelParagraph{DivID: 0, ParagraphID: 2}, cmd)
}

func TestParseStringWithCommasAndParens(t *testing.T) {
	cmd, err := Parse(`replace_paragraph(0, 0, 'Revenue (Q3, Q4): up')`)
	require.NoError(t, err)
	assert.Equal(t, "Revenue (Q3, Q4): up", cmd.(ReplaceParagraph).Text)
}

func TestParseUnknownOperation(t *testing.T) {
	_, err := Parse(`insert_paragraph(0, 1)`)
	assert.Equal(t, errinfo.CodeUnknownOperation, editCode(t, err))
	assert.Contains(t, err.Error(), "The function insert_paragraph is not defined.")
}

func TestParseArityMismatch(t *testing.T) {
	_, err := Parse(`del_paragraph(0)`)
	assert.Equal(t, errinfo.CodeArgumentInvalid, editCode(t, err))
	assert.Contains(t, err.Error(), "def del_paragraph(div_id: int, paragraph_id: int)")
}

func TestParseWrongArgumentType(t *testing.T) {
	_, err := Parse(`del_paragraph('a', 1)`)
	assert.Equal(t, errinfo.CodeArgumentInvalid, editCode(t, err))
	assert.Contains(t, err.Error(), "div_id must be an integer")

	_, err = Parse(`replace_paragraph(0, 1, 42)`)
	assert.Equal(t, errinfo.CodeArgumentInvalid, editCode(t, err))
	assert.Contains(t, err.Error(), "text must be a string")
}

func TestParseIdentifierArgument(t *testing.T) {
	_, err := Parse(`del_paragraph(div_id, 1)`)
	assert.Equal(t, errinfo.CodeArgumentInvalid, editCode(t, err))
	assert.Contains(t, err.Error(), `identifier "div_id" is not allowed`)
}

func TestParseTrailingInput(t *testing.T) {
	_, err := Parse(`del_image(1) and more`)
	assert.Equal(t, errinfo.CodeArgumentInvalid, editCode(t, err))
	assert.Contains(t, err.Error(), "unexpected trailing input")
}

func TestParseInlineComment(t *testing.T) {
	cmd, err := Parse(`del_image(1)  # remove the chart`)
	require.NoError(t, err)
	assert.Equal(t, DelImage{FigureID: 1}, cmd)

	cmd, err = Parse(`replace_paragraph(0, 1, 'issue #42')# tracker reference`)
	require.NoError(t, err)
	assert.Equal(t, "issue #42", cmd.(ReplaceParagraph).Text)

	_, err = Parse(`del_image(1) trailing # comment`)
	assert.Equal(t, errinfo.CodeArgumentInvalid, editCode(t, err))
}

func TestDocsListsEveryOperation(t *testing.T) {
	docs := Docs()
	for _, spec := range Registry() {
		assert.Contains(t, docs, spec.Signature)
		assert.True(t, Registered(spec.Name))
	}
	assert.False(t, Registered("eval"))
	assert.Equal(t, strings.Count(docs, "def "), len(Registry()))
}
