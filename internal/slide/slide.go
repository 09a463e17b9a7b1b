// Package slide holds the in-memory shadow model of a single slide under
// edit. Commands mutate this model immediately; the matching structural
// edits against the real document tree are queued as closures and drained
// by the save boundary.
package slide

import (
	"fmt"
	"sort"
	"strings"
)

const (
	KindText    = "text"
	KindPicture = "picture"
	KindTable   = "table"
	KindGroup   = "group"
)

// TextRun is one styled span of paragraph text. Styles mirror the inline
// markdown subset the upstream model is allowed to emit.
type TextRun struct {
	Text          string `json:"text"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Href          string `json:"href,omitempty"`
}

// Paragraph is one text unit inside a text frame. ID is the stable logical
// identifier exposed to the command language; RealIdx is the paragraph's
// physical position in the underlying serialized tree at load time and is
// only meaningful to the closure layer. Structural paragraphs that must never
// be targeted by a command carry Addressable=false.
type Paragraph struct {
	ID          int
	Addressable bool
	RealIdx     int
	Runs        []TextRun
}

// Text returns the concatenated run text of the paragraph.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Clone returns a deep copy of the paragraph.
func (p *Paragraph) Clone() *Paragraph {
	runs := make([]TextRun, len(p.Runs))
	copy(runs, p.Runs)
	return &Paragraph{ID: p.ID, Addressable: p.Addressable, RealIdx: p.RealIdx, Runs: runs}
}

// PictureProps carries the geometry and source path of a picture shape.
// Units are points. IsTable marks a picture that has been redirected into a
// structured table rebuild.
type PictureProps struct {
	Path    string
	Left    float64
	Top     float64
	Width   float64
	Height  float64
	IsTable bool
	Rows    int
	Cols    int
}

// Shape is one node in the slide's shape collection. A shape owns one queue
// per closure type; queues are only ever drained by the save boundary.
type Shape struct {
	ShapeIdx   int
	Kind       string
	Paragraphs []*Paragraph
	Picture    *PictureProps

	closures [closureTypeCount][]Closure
}

// IsTextFrame reports whether the shape can be addressed by paragraph
// operations.
func (s *Shape) IsTextFrame() bool {
	return s.Kind == KindText && s.Paragraphs != nil
}

// ValidIDs returns the sorted logical ids currently addressable in the shape.
func (s *Shape) ValidIDs() []int {
	var ids []int
	for _, p := range s.Paragraphs {
		if p.Addressable {
			ids = append(ids, p.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// MaxValidID returns the highest addressable logical id, or ok=false when the
// shape has none.
func (s *Shape) MaxValidID() (int, bool) {
	ids := s.ValidIDs()
	if len(ids) == 0 {
		return 0, false
	}
	return ids[len(ids)-1], true
}

// FindParagraph returns the addressable paragraph with the given logical id.
func (s *Shape) FindParagraph(id int) *Paragraph {
	for _, p := range s.Paragraphs {
		if p.Addressable && p.ID == id {
			return p
		}
	}
	return nil
}

// RemoveParagraph drops the paragraph from the shadow model. The physical
// node survives until the matching DELETE closure is drained.
func (s *Shape) RemoveParagraph(target *Paragraph) bool {
	for i, p := range s.Paragraphs {
		if p == target {
			s.Paragraphs = append(s.Paragraphs[:i], s.Paragraphs[i+1:]...)
			return true
		}
	}
	return false
}

// AppendParagraph appends a paragraph at the shadow model's physical end.
func (s *Shape) AppendParagraph(p *Paragraph) {
	s.Paragraphs = append(s.Paragraphs, p)
}

// SlidePage is the shadow model of one slide. A SlidePage is owned by exactly
// one edit session at a time; nothing here is safe for concurrent use.
type SlidePage struct {
	SlideIdx int
	Shapes   []*Shape
}

// FindShape returns the shape with the given stable identifier.
func (sp *SlidePage) FindShape(shapeIdx int) *Shape {
	for _, s := range sp.Shapes {
		if s.ShapeIdx == shapeIdx {
			return s
		}
	}
	return nil
}

// RemoveShape drops a shape from the collection, as for a delete-image edit.
func (sp *SlidePage) RemoveShape(target *Shape) bool {
	for i, s := range sp.Shapes {
		if s == target {
			sp.Shapes = append(sp.Shapes[:i], sp.Shapes[i+1:]...)
			return true
		}
	}
	return false
}

// PlainText renders the slide's current text content, one paragraph per
// line, for review diffs and logging. Pictures render as a placeholder line
// so that image swaps show up in the review.
func (sp *SlidePage) PlainText() string {
	var b strings.Builder
	for _, sh := range sp.Shapes {
		switch {
		case sh.IsTextFrame():
			for _, p := range sh.Paragraphs {
				if !p.Addressable {
					continue
				}
				fmt.Fprintf(&b, "[%d.%d] %s\n", sh.ShapeIdx, p.ID, p.Text())
			}
		case sh.Picture != nil:
			if sh.Picture.IsTable {
				fmt.Fprintf(&b, "[%d] <table %dx%d>\n", sh.ShapeIdx, sh.Picture.Rows, sh.Picture.Cols)
			} else {
				fmt.Fprintf(&b, "[%d] <image %s>\n", sh.ShapeIdx, sh.Picture.Path)
			}
		}
	}
	return b.String()
}
