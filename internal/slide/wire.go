package slide

import (
	"encoding/json"
	"fmt"
)

// The wire format mirrors what the upstream presentation parser serializes:
// paragraphs carry their logical idx (-1 for structural, never-addressable
// runs) and the physical real_idx captured at parse time.

type paragraphWire struct {
	Idx     int       `json:"idx"`
	RealIdx int       `json:"real_idx"`
	Runs    []TextRun `json:"runs,omitempty"`
}

type pictureWire struct {
	Path    string  `json:"path"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	IsTable bool    `json:"is_table,omitempty"`
	Rows    int     `json:"rows,omitempty"`
	Cols    int     `json:"cols,omitempty"`
}

type shapeWire struct {
	ShapeIdx   int             `json:"shape_idx"`
	Kind       string          `json:"kind"`
	Paragraphs []paragraphWire `json:"paragraphs,omitempty"`
	Picture    *pictureWire    `json:"picture,omitempty"`
}

type slideWire struct {
	SlideIdx int         `json:"slide_idx"`
	Shapes   []shapeWire `json:"shapes"`
}

// Load parses a serialized slide into the shadow model. Shape identifiers
// must be unique; logical paragraph ids must be unique within their shape.
func Load(data []byte) (*SlidePage, error) {
	var w slideWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode slide: %w", err)
	}
	sp := &SlidePage{SlideIdx: w.SlideIdx}
	seenShapes := map[int]bool{}
	for _, sw := range w.Shapes {
		if seenShapes[sw.ShapeIdx] {
			return nil, fmt.Errorf("duplicate shape_idx %d", sw.ShapeIdx)
		}
		seenShapes[sw.ShapeIdx] = true
		sh := &Shape{ShapeIdx: sw.ShapeIdx, Kind: sw.Kind}
		switch sw.Kind {
		case KindText:
			seenIDs := map[int]bool{}
			sh.Paragraphs = make([]*Paragraph, 0, len(sw.Paragraphs))
			for _, pw := range sw.Paragraphs {
				p := &Paragraph{RealIdx: pw.RealIdx, Runs: pw.Runs}
				if pw.Idx >= 0 {
					if seenIDs[pw.Idx] {
						return nil, fmt.Errorf("shape %d: duplicate paragraph idx %d", sw.ShapeIdx, pw.Idx)
					}
					seenIDs[pw.Idx] = true
					p.ID = pw.Idx
					p.Addressable = true
				}
				sh.Paragraphs = append(sh.Paragraphs, p)
			}
		case KindPicture, KindTable:
			if sw.Picture == nil {
				return nil, fmt.Errorf("shape %d: %s shape without picture payload", sw.ShapeIdx, sw.Kind)
			}
			sh.Picture = &PictureProps{
				Path:    sw.Picture.Path,
				Left:    sw.Picture.Left,
				Top:     sw.Picture.Top,
				Width:   sw.Picture.Width,
				Height:  sw.Picture.Height,
				IsTable: sw.Picture.IsTable,
				Rows:    sw.Picture.Rows,
				Cols:    sw.Picture.Cols,
			}
		case KindGroup:
			// groups are opaque to the command language
		default:
			return nil, fmt.Errorf("shape %d: unknown kind %q", sw.ShapeIdx, sw.Kind)
		}
		sp.Shapes = append(sp.Shapes, sh)
	}
	return sp, nil
}

// Marshal serializes the current shadow state back to the wire format.
// Queued closures are not part of the state; see TakeDrainPlan.
func (sp *SlidePage) Marshal() ([]byte, error) {
	w := slideWire{SlideIdx: sp.SlideIdx}
	for _, sh := range sp.Shapes {
		sw := shapeWire{ShapeIdx: sh.ShapeIdx, Kind: sh.Kind}
		if sh.IsTextFrame() {
			for _, p := range sh.Paragraphs {
				pw := paragraphWire{Idx: -1, RealIdx: p.RealIdx, Runs: p.Runs}
				if p.Addressable {
					pw.Idx = p.ID
				}
				sw.Paragraphs = append(sw.Paragraphs, pw)
			}
		}
		if sh.Picture != nil {
			sw.Picture = &pictureWire{
				Path:    sh.Picture.Path,
				Left:    sh.Picture.Left,
				Top:     sh.Picture.Top,
				Width:   sh.Picture.Width,
				Height:  sh.Picture.Height,
				IsTable: sh.Picture.IsTable,
				Rows:    sh.Picture.Rows,
				Cols:    sh.Picture.Cols,
			}
		}
		w.Shapes = append(w.Shapes, sw)
	}
	return json.Marshal(w)
}

// PlannedOp is one drained closure addressed to the external save routine.
// Ops appear in drain order and carry the physical index captured at enqueue
// time.
type PlannedOp struct {
	ShapeIdx int        `json:"shape_idx"`
	Op       string     `json:"op"`
	RealIdx  int        `json:"real_idx"`
	Runs     []TextRun  `json:"runs,omitempty"`
	Cells    [][]string `json:"cells,omitempty"`
	Merges   []CellSpan `json:"merges,omitempty"`
}

type planSink struct {
	ops []PlannedOp
}

func (s *planSink) ReplaceParagraph(shapeIdx, realIdx int, runs []TextRun) error {
	s.ops = append(s.ops, PlannedOp{ShapeIdx: shapeIdx, Op: "replace_paragraph", RealIdx: realIdx, Runs: runs})
	return nil
}

func (s *planSink) CloneParagraph(shapeIdx, realIdx int) error {
	s.ops = append(s.ops, PlannedOp{ShapeIdx: shapeIdx, Op: "clone_paragraph", RealIdx: realIdx})
	return nil
}

func (s *planSink) DeleteParagraph(shapeIdx, realIdx int) error {
	s.ops = append(s.ops, PlannedOp{ShapeIdx: shapeIdx, Op: "delete_paragraph", RealIdx: realIdx})
	return nil
}

func (s *planSink) BuildTable(shapeIdx int, cells [][]string) error {
	s.ops = append(s.ops, PlannedOp{ShapeIdx: shapeIdx, Op: "build_table", RealIdx: -1, Cells: cells})
	return nil
}

func (s *planSink) MergeCells(shapeIdx int, merges []CellSpan) error {
	s.ops = append(s.ops, PlannedOp{ShapeIdx: shapeIdx, Op: "merge_cells", RealIdx: -1, Merges: merges})
	return nil
}

// TakeDrainPlan drains every queue into an ordered operation list for an
// out-of-process save boundary. The queues are emptied; calling it twice
// yields an empty second plan.
func (sp *SlidePage) TakeDrainPlan() []PlannedOp {
	sink := &planSink{}
	// planSink never fails, so Drain cannot either.
	_ = sp.Drain(sink, nil)
	return sink.ops
}
