package slide

import (
	"fmt"
	"log/slog"
)

// ClosureType tags a deferred mutation. Draining happens strictly in the
// order Replace, Clone, Delete, Merge: operations that reference a captured
// physical index must run before structure-shrinking deletes invalidate it.
type ClosureType int

const (
	ClosureReplace ClosureType = iota
	ClosureClone
	ClosureDelete
	ClosureMerge

	closureTypeCount
)

var closureTypeNames = [closureTypeCount]string{"replace", "clone", "delete", "merge"}

func (t ClosureType) String() string {
	if t < 0 || t >= closureTypeCount {
		return fmt.Sprintf("closure(%d)", int(t))
	}
	return closureTypeNames[t]
}

// DrainOrder is the fixed order in which a shape's queues are applied at
// save time.
var DrainOrder = [...]ClosureType{ClosureReplace, ClosureClone, ClosureDelete, ClosureMerge}

// CellSpan describes one rectangular merge area of a rebuilt table, in
// zero-based row/column coordinates, both ends inclusive.
type CellSpan struct {
	FromRow int `json:"from_row"`
	FromCol int `json:"from_col"`
	ToRow   int `json:"to_row"`
	ToCol   int `json:"to_col"`
}

// Closure is a deferred structural mutation recorded at edit time and
// applied once at save time. It is plain data rather than a captured
// function so that queues stay inspectable and serializable: RealIdx is the
// physical index captured at enqueue time (-1 for whole-shape payloads), and
// exactly one payload field is set depending on Type.
type Closure struct {
	Type    ClosureType `json:"type"`
	RealIdx int         `json:"real_idx"`
	Runs    []TextRun   `json:"runs,omitempty"`   // ClosureReplace, paragraph rewrite
	Cells   [][]string  `json:"cells,omitempty"`  // ClosureReplace, table rebuild
	Merges  []CellSpan  `json:"merges,omitempty"` // ClosureMerge
}

// Enqueue records a closure on the shape's queue for its type. Closures are
// never applied at enqueue time.
func (s *Shape) Enqueue(c Closure) {
	if c.Type < 0 || c.Type >= closureTypeCount {
		panic(fmt.Sprintf("slide: invalid closure type %d", int(c.Type)))
	}
	s.closures[c.Type] = append(s.closures[c.Type], c)
}

// Queued returns the closures of one type in enqueue order.
func (s *Shape) Queued(t ClosureType) []Closure {
	return s.closures[t]
}

// QueuedTotal returns the number of pending closures across all queues.
func (s *Shape) QueuedTotal() int {
	n := 0
	for _, q := range s.closures {
		n += len(q)
	}
	return n
}

// Sink is the external save boundary: the real serialized document tree.
// Physical indices passed in are the values captured at enqueue time; the
// sink must apply them in the order given by Drain and must not renumber
// between calls of the same drain pass.
type Sink interface {
	ReplaceParagraph(shapeIdx, realIdx int, runs []TextRun) error
	CloneParagraph(shapeIdx, realIdx int) error
	DeleteParagraph(shapeIdx, realIdx int) error
	BuildTable(shapeIdx int, cells [][]string) error
	MergeCells(shapeIdx int, merges []CellSpan) error
}

// Drain applies every queued closure of the shape to the sink in DrainOrder
// and empties the queues. Merge failures are logged and skipped rather than
// failing the save; everything else aborts on first error with the queues
// already partially drained, matching the session-as-unit-of-rollback rule.
func (s *Shape) Drain(sink Sink, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, t := range DrainOrder {
		for _, c := range s.closures[t] {
			if err := applyClosure(sink, s.ShapeIdx, c); err != nil {
				if t == ClosureMerge {
					logger.Warn("slide.merge_failed", "shape", s.ShapeIdx, "error", err.Error())
					continue
				}
				return fmt.Errorf("drain %s on shape %d: %w", t, s.ShapeIdx, err)
			}
		}
	}
	s.closures = [closureTypeCount][]Closure{}
	return nil
}

// Drain drains every shape of the slide in collection order.
func (sp *SlidePage) Drain(sink Sink, logger *slog.Logger) error {
	for _, sh := range sp.Shapes {
		if err := sh.Drain(sink, logger); err != nil {
			return err
		}
	}
	return nil
}

func applyClosure(sink Sink, shapeIdx int, c Closure) error {
	switch c.Type {
	case ClosureReplace:
		if c.Cells != nil {
			return sink.BuildTable(shapeIdx, c.Cells)
		}
		return sink.ReplaceParagraph(shapeIdx, c.RealIdx, c.Runs)
	case ClosureClone:
		return sink.CloneParagraph(shapeIdx, c.RealIdx)
	case ClosureDelete:
		return sink.DeleteParagraph(shapeIdx, c.RealIdx)
	case ClosureMerge:
		return sink.MergeCells(shapeIdx, c.Merges)
	default:
		return fmt.Errorf("unknown closure type %d", int(c.Type))
	}
}
