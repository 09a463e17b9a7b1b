package executor

import (
	"errors"
	"regexp"

	"github.com/SnowriterMYX/PPTAgent/internal/assets"
	"github.com/SnowriterMYX/PPTAgent/internal/command"
	"github.com/SnowriterMYX/PPTAgent/internal/document"
	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
	"github.com/SnowriterMYX/PPTAgent/internal/slide"
)

// tableImage matches the path convention used for rendered-table images.
var tableImage = regexp.MustCompile(`.*table_[0-9a-fA-F]{4}\.png$`)

// internalError is an unexpected failure inside an operation, carrying the
// stack captured at the panic site.
type internalError struct {
	message string
	stack   string
}

func (e *internalError) Error() string { return e.message }

func (e *internalError) Trace() string {
	if e.stack == "" {
		return e.message
	}
	return e.message + "\n" + e.stack
}

func asInternal(err error, target **internalError) bool {
	return errors.As(err, target)
}

// elementIndex finds a shape by its stable identifier.
func (e *Executor) elementIndex(sl *slide.SlidePage, elementID int) (*slide.Shape, error) {
	if sh := sl.FindShape(elementID); sh != nil {
		return sh, nil
	}
	return nil, errinfo.Editf(errinfo.CodeElementNotFound,
		"Cannot find element %d, is it deleted or not exist?", elementID)
}

// resolveParagraph maps a requested logical id onto the current paragraph
// set. Over-range requests clamp to the maximum valid id with a logged
// correction; an id below the max that no longer exists is a hard failure.
func (e *Executor) resolveParagraph(sh *slide.Shape, divID, paragraphID int, op string) (*slide.Paragraph, error) {
	if !sh.IsTextFrame() {
		return nil, errinfo.Editf(errinfo.CodeNotATextFrame,
			"The element %d does not have a text frame, please check the element id and type of element.", divID)
	}
	ids := sh.ValidIDs()
	if len(ids) == 0 {
		return nil, errinfo.Editf(errinfo.CodeNoValidParagraphs,
			"No valid paragraphs found in element %d, cannot perform the %s operation.", divID, op)
	}
	if p := sh.FindParagraph(paragraphID); p != nil {
		return p, nil
	}
	maxID := ids[len(ids)-1]
	if paragraphID >= maxID {
		e.logger.Info("executor.autocorrect",
			"op", op, "element", divID, "requested", paragraphID, "max_available", maxID)
		e.stats.countCorrection(paragraphID, maxID)
		return sh.FindParagraph(maxID), nil
	}
	return nil, errinfo.Editf(errinfo.CodeParagraphNotFound,
		"Cannot find paragraph %d in element %d for the %s operation. Available paragraph IDs: %v. "+
			"Suggestion: use one of the available IDs or check if previous operations modified the paragraph structure.",
		paragraphID, divID, op, ids)
}

func (e *Executor) delParagraph(sl *slide.SlidePage, c command.DelParagraph) error {
	sh, err := e.elementIndex(sl, c.DivID)
	if err != nil {
		return err
	}
	p, err := e.resolveParagraph(sh, c.DivID, c.ParagraphID, "delete")
	if err != nil {
		return err
	}
	sh.RemoveParagraph(p)
	sh.Enqueue(slide.Closure{Type: slide.ClosureDelete, RealIdx: p.RealIdx})
	return nil
}

func (e *Executor) replaceParagraph(sl *slide.SlidePage, c command.ReplaceParagraph) error {
	sh, err := e.elementIndex(sl, c.DivID)
	if err != nil {
		return err
	}
	p, err := e.resolveParagraph(sh, c.DivID, c.ParagraphID, "replace")
	if err != nil {
		return err
	}
	runs := slide.ParseRuns(c.Text)
	p.Runs = runs
	sh.Enqueue(slide.Closure{Type: slide.ClosureReplace, RealIdx: p.RealIdx, Runs: runs})
	return nil
}

func (e *Executor) cloneParagraph(sl *slide.SlidePage, c command.CloneParagraph) error {
	sh, err := e.elementIndex(sl, c.DivID)
	if err != nil {
		return err
	}
	p, err := e.resolveParagraph(sh, c.DivID, c.ParagraphID, "clone")
	if err != nil {
		return err
	}
	maxID, _ := sh.MaxValidID()
	clone := p.Clone()
	clone.ID = maxID + 1
	clone.Addressable = true
	clone.RealIdx = len(sh.Paragraphs)
	sh.AppendParagraph(clone)
	sh.Enqueue(slide.Closure{Type: slide.ClosureClone, RealIdx: p.RealIdx})
	return nil
}

func (e *Executor) delImage(sl *slide.SlidePage, c command.DelImage) error {
	sh, err := e.elementIndex(sl, c.FigureID)
	if err != nil {
		return err
	}
	if sh.Picture == nil || sh.Kind != slide.KindPicture {
		return errinfo.Editf(errinfo.CodeNotAPicture,
			"The element %d of slide %d is not a Picture.", sh.ShapeIdx, sl.SlideIdx)
	}
	sl.RemoveShape(sh)
	return nil
}

func (e *Executor) replaceImage(sl *slide.SlidePage, doc *document.Document, c command.ReplaceImage) error {
	resolved, err := e.assets.Stat(c.ImagePath)
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrNotFound):
			return errinfo.Editf(errinfo.CodeImageNotFound,
				"The image %s does not exist, consider use del_image if image_path in the given command is faked.", c.ImagePath)
		case errors.Is(err, assets.ErrSandboxViolation):
			return errinfo.Editf(errinfo.CodeSandboxViolation,
				"The image %s is outside the allowed asset directory.", c.ImagePath)
		default:
			return err
		}
	}
	sh, err := e.elementIndex(sl, c.ImgID)
	if err != nil {
		return err
	}
	if sh.Picture == nil || sh.Kind != slide.KindPicture {
		return errinfo.Editf(errinfo.CodeNotAPicture,
			"The element %d of slide %d is not a Picture.", sh.ShapeIdx, sl.SlideIdx)
	}

	if tableImage.MatchString(c.ImagePath) {
		redirectErr := e.replaceImageWithTable(sh, doc, c.ImagePath)
		if redirectErr == nil {
			return nil
		}
		// never a hard failure: fall back to the plain image swap
		e.logger.Warn("executor.table_redirect_failed",
			"path", c.ImagePath, "error", redirectErr.Error())
	}

	imgW, imgH, err := e.assets.ImageSize(c.ImagePath)
	if err != nil {
		return errinfo.Editf(errinfo.CodeImageNotFound,
			"The image %s could not be read as an image: %v", c.ImagePath, err)
	}
	pic := sh.Picture
	ratio := min(pic.Width/float64(imgW), pic.Height/float64(imgH))
	newWidth := float64(imgW) * ratio
	newHeight := float64(imgH) * ratio
	pic.Top += (pic.Height - newHeight) / 2
	pic.Width = newWidth
	pic.Height = newHeight
	pic.Path = resolved
	return nil
}

// replaceImageWithTable redirects a rendered-table image swap into a
// structural table rebuild from the document's table store.
func (e *Executor) replaceImageWithTable(sh *slide.Shape, doc *document.Document, imagePath string) error {
	if doc == nil {
		return errinfo.Editf(errinfo.CodeTableNotFound,
			"no document context available for table %s", imagePath)
	}
	table, err := doc.GetTable(imagePath)
	if err != nil {
		return errinfo.Editf(errinfo.CodeTableNotFound, "%v", err)
	}
	rows, cols := table.Grid()
	sh.Picture.IsTable = true
	sh.Picture.Rows = rows
	sh.Picture.Cols = cols
	sh.Enqueue(slide.Closure{Type: slide.ClosureReplace, RealIdx: -1, Cells: table.Cells})
	sh.Enqueue(slide.Closure{Type: slide.ClosureMerge, RealIdx: -1, Merges: table.MergeArea})
	return nil
}
