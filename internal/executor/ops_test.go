package executor

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SnowriterMYX/PPTAgent/internal/assets"
	"github.com/SnowriterMYX/PPTAgent/internal/document"
	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
	"github.com/SnowriterMYX/PPTAgent/internal/slide"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func run(t *testing.T, e *Executor, sl *slide.SlidePage, doc *document.Document, line string) *Failure {
	t.Helper()
	return e.ExecuteActions(line, sl, doc, true)
}

func TestReplaceParagraphUpdatesShadowAndQueue(t *testing.T) {
	e := New()
	sl := testSlide()
	require.Nil(t, run(t, e, sl, nil, "replace_paragraph(0, 1, '**Bold** move')"))

	sh := sl.Shapes[0]
	assert.Equal(t, "Bold move", sh.FindParagraph(1).Text())
	queued := sh.Queued(slide.ClosureReplace)
	require.Len(t, queued, 1)
	assert.Equal(t, 1, queued[0].RealIdx)
	assert.Equal(t, slide.TextRun{Text: "Bold", Bold: true}, queued[0].Runs[0])
}

func TestDeleteParagraphQueuesRealIdx(t *testing.T) {
	e := New()
	sl := testSlide()
	require.Nil(t, run(t, e, sl, nil, "del_paragraph(0, 1)"))

	sh := sl.Shapes[0]
	assert.Equal(t, []int{0, 2}, sh.ValidIDs())
	queued := sh.Queued(slide.ClosureDelete)
	require.Len(t, queued, 1)
	assert.Equal(t, 1, queued[0].RealIdx)
}

func TestCloneParagraphAssignsNextID(t *testing.T) {
	e := New()
	sl := testSlide()
	require.Nil(t, run(t, e, sl, nil, "clone_paragraph(0, 0)"))

	sh := sl.Shapes[0]
	assert.Equal(t, []int{0, 1, 2, 3}, sh.ValidIDs())
	clone := sh.FindParagraph(3)
	require.NotNil(t, clone)
	assert.Equal(t, "alpha", clone.Text())
	assert.Equal(t, 3, clone.RealIdx)

	queued := sh.Queued(slide.ClosureClone)
	require.Len(t, queued, 1)
	assert.Equal(t, 0, queued[0].RealIdx)
}

func TestAutoCorrectionClampsOverRange(t *testing.T) {
	e := New()
	sl := testSlide()
	require.Nil(t, run(t, e, sl, nil, "replace_paragraph(0, 7, 'clamped')"))

	sh := sl.Shapes[0]
	assert.Equal(t, "clamped", sh.FindParagraph(2).Text())
	assert.Equal(t, "beta", sh.FindParagraph(1).Text())

	r := e.Report()
	assert.Equal(t, 1, r.AutoCorrections)
	require.Len(t, r.Mismatches, 1)
	assert.Equal(t, Mismatch{Requested: 7, MaxAvailable: 2, Count: 1}, r.Mismatches[0])
}

func TestMismatchOrdering(t *testing.T) {
	e := New()
	sl := testSlide()
	require.Nil(t, run(t, e, sl, nil, "replace_paragraph(0, 9, 'a')"))
	require.Nil(t, run(t, e, sl, nil, "replace_paragraph(0, 5, 'b')"))
	require.Nil(t, run(t, e, sl, nil, "replace_paragraph(0, 5, 'c')"))

	r := e.Report()
	assert.Equal(t, 3, r.AutoCorrections)
	require.Len(t, r.Mismatches, 2)
	assert.Equal(t, Mismatch{Requested: 5, MaxAvailable: 2, Count: 2}, r.Mismatches[0])
	assert.Equal(t, Mismatch{Requested: 9, MaxAvailable: 2, Count: 1}, r.Mismatches[1])
}

func TestUnderRangeIsNotCorrected(t *testing.T) {
	e := New()
	sl := testSlide()
	require.Nil(t, run(t, e, sl, nil, "del_paragraph(0, 1)"))

	failure := run(t, e, sl, nil, "replace_paragraph(0, 1, 'back')")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeParagraphNotFound, failure.Code)
	assert.Contains(t, failure.Trace, "Available paragraph IDs: [0 2]")
	assert.Equal(t, 0, e.Report().AutoCorrections)
}

func TestNegativeIDIsNotCorrected(t *testing.T) {
	e := New()
	failure := run(t, e, testSlide(), nil, "replace_paragraph(0, -1, 'x')")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeParagraphNotFound, failure.Code)
	assert.Equal(t, 0, e.Report().AutoCorrections)
}

func TestNoValidParagraphs(t *testing.T) {
	e := New()
	sl := testSlide()
	sl.Shapes[0].Paragraphs = []*slide.Paragraph{{RealIdx: 0}}

	failure := run(t, e, sl, nil, "del_paragraph(0, 0)")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeNoValidParagraphs, failure.Code)
}

func TestParagraphOpOnPicture(t *testing.T) {
	e := New()
	failure := run(t, e, testSlide(), nil, "replace_paragraph(1, 0, 'x')")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeNotATextFrame, failure.Code)
}

func TestDelImage(t *testing.T) {
	e := New()
	sl := testSlide()
	require.Nil(t, run(t, e, sl, nil, "del_image(1)"))
	assert.Nil(t, sl.FindShape(1))

	failure := run(t, e, sl, nil, "del_image(0)")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeNotAPicture, failure.Code)
	assert.Contains(t, failure.Trace, "The element 0 of slide 7 is not a Picture.")
}

func TestReplaceImageGeometry(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "wide.png"), 100, 50)
	e := New(WithAssets(assets.NewStore(root)))
	sl := testSlide()

	require.Nil(t, run(t, e, sl, nil, "replace_image(1, 'wide.png')"))

	pic := sl.FindShape(1).Picture
	// 100x50 into a 200x200 box: scale by 2, then recenter vertically
	assert.InDelta(t, 200.0, pic.Width, 1e-9)
	assert.InDelta(t, 100.0, pic.Height, 1e-9)
	assert.InDelta(t, 50.0, pic.Top, 1e-9)
	assert.Equal(t, filepath.Join(root, "wide.png"), pic.Path)
}

func TestReplaceImageMissing(t *testing.T) {
	e := New(WithAssets(assets.NewStore(t.TempDir())))
	failure := run(t, e, testSlide(), nil, "replace_image(1, 'nope.png')")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeImageNotFound, failure.Code)
	assert.Contains(t, failure.Trace, "consider use del_image")
}

func TestReplaceImageEscapesSandbox(t *testing.T) {
	e := New(WithAssets(assets.NewStore(t.TempDir())))
	failure := run(t, e, testSlide(), nil, "replace_image(1, '../../etc/passwd')")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeSandboxViolation, failure.Code)
}

func TestReplaceImageOnText(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 10, 10)
	e := New(WithAssets(assets.NewStore(root)))
	failure := run(t, e, testSlide(), nil, "replace_image(0, 'a.png')")
	require.NotNil(t, failure)
	assert.Equal(t, errinfo.CodeNotAPicture, failure.Code)
}

func TestDrainPlanKeepsCapturedIndices(t *testing.T) {
	e := New()
	sl := testSlide()
	actions := "replace_paragraph(0, 2, 'last')\ndel_paragraph(0, 1)"
	require.Nil(t, e.ExecuteActions(actions, sl, nil, true))

	// the replace targets the position captured at enqueue time, before the
	// delete shrinks the physical tree
	plan := sl.TakeDrainPlan()
	require.Len(t, plan, 2)
	assert.Equal(t, "replace_paragraph", plan[0].Op)
	assert.Equal(t, 2, plan[0].RealIdx)
	assert.Equal(t, "delete_paragraph", plan[1].Op)
	assert.Equal(t, 1, plan[1].RealIdx)
}

func tableDoc(path string) *document.Document {
	return &document.Document{Sections: []document.Section{{
		Title: "Results",
		Medias: []document.Media{{
			Path:      path,
			Cells:     [][]string{{"h1", "h2"}, {"a", "b"}, {"c", "d"}},
			MergeArea: []slide.CellSpan{{FromRow: 0, FromCol: 0, ToRow: 0, ToCol: 1}},
		}},
	}}}
}

func TestReplaceImageRedirectsToTable(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "table_00ab.png"), 100, 50)
	e := New(WithAssets(assets.NewStore(root)))
	sl := testSlide()
	doc := tableDoc("table_00ab.png")

	require.Nil(t, run(t, e, sl, doc, "replace_image(1, 'table_00ab.png')"))

	sh := sl.FindShape(1)
	assert.True(t, sh.Picture.IsTable)
	assert.Equal(t, 3, sh.Picture.Rows)
	assert.Equal(t, 2, sh.Picture.Cols)
	// geometry untouched on the table path
	assert.InDelta(t, 200.0, sh.Picture.Height, 1e-9)

	replaces := sh.Queued(slide.ClosureReplace)
	require.Len(t, replaces, 1)
	assert.Equal(t, [][]string{{"h1", "h2"}, {"a", "b"}, {"c", "d"}}, replaces[0].Cells)
	merges := sh.Queued(slide.ClosureMerge)
	require.Len(t, merges, 1)
	assert.Equal(t, slide.CellSpan{ToCol: 1}, merges[0].Merges[0])
}

func TestTableRedirectFallsBackToImageSwap(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "table_00ab.png"), 100, 50)
	e := New(WithAssets(assets.NewStore(root)))
	sl := testSlide()

	// table-shaped name but no document context: plain swap instead
	require.Nil(t, run(t, e, sl, nil, "replace_image(1, 'table_00ab.png')"))

	pic := sl.FindShape(1).Picture
	assert.False(t, pic.IsTable)
	assert.InDelta(t, 100.0, pic.Height, 1e-9)
}

func TestElementNotFound(t *testing.T) {
	e := New()
	for _, line := range []string{"del_paragraph(42, 0)", "del_image(42)"} {
		failure := run(t, e, testSlide(), nil, line)
		require.NotNil(t, failure, "line %s", line)
		assert.Equal(t, errinfo.CodeElementNotFound, failure.Code)
		assert.Equal(t, fmt.Sprintf("SlideEditError: Cannot find element %d, is it deleted or not exist?", 42), failure.Trace)
	}
}
