// Package document models the ingested source document: sections of
// markdown content with their media elements. The executor only consumes the
// table store, which maps a rendered table image path back to structured
// cell and merge data.
package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SnowriterMYX/PPTAgent/internal/slide"
)

var ErrTableNotFound = errors.New("table not found")

// Media is an image or table element extracted from the source document.
// Path points at the rendered image used while laying out slides.
type Media struct {
	MarkdownContent string           `json:"markdown_content"`
	Path            string           `json:"path,omitempty"`
	Caption         string           `json:"caption,omitempty"`
	Cells           [][]string       `json:"cells,omitempty"`
	MergeArea       []slide.CellSpan `json:"merge_area,omitempty"`
}

// IsTable reports whether the media carries structured table data.
func (m *Media) IsTable() bool { return len(m.Cells) > 0 }

// Section is one titled chunk of the source document.
type Section struct {
	Title   string  `json:"title"`
	Content string  `json:"content,omitempty"`
	Medias  []Media `json:"medias,omitempty"`
}

// Document is the parsed source document handed over by the ingestion
// pipeline.
type Document struct {
	ImageDir string            `json:"image_dir,omitempty"`
	Sections []Section         `json:"sections"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Load decodes a serialized document and validates the parts the executor
// depends on.
func Load(data []byte) (*Document, error) {
	var raw struct {
		ImageDir string            `json:"image_dir"`
		Sections *[]Section        `json:"sections"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if raw.Sections == nil {
		return nil, errors.New("document: missing sections")
	}
	doc := &Document{ImageDir: raw.ImageDir, Sections: *raw.Sections, Metadata: raw.Metadata}
	for si, sec := range doc.Sections {
		for mi, m := range sec.Medias {
			if !m.IsTable() {
				continue
			}
			cols := len(m.Cells[0])
			for _, row := range m.Cells {
				if len(row) != cols {
					return nil, fmt.Errorf("document: section %d media %d: ragged table rows", si, mi)
				}
			}
		}
	}
	return doc, nil
}

// Tables iterates every table media in document order.
func (d *Document) Tables(fn func(*Media) bool) {
	for si := range d.Sections {
		for mi := range d.Sections[si].Medias {
			m := &d.Sections[si].Medias[mi]
			if m.IsTable() && !fn(m) {
				return
			}
		}
	}
}

// GetTable resolves a rendered table image path to its structured data.
func (d *Document) GetTable(imagePath string) (*Media, error) {
	var found *Media
	d.Tables(func(m *Media) bool {
		if m.Path == imagePath {
			found = m
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, imagePath)
	}
	return found, nil
}

// Grid returns the table dimensions as rows, cols.
func (m *Media) Grid() (int, int) {
	if len(m.Cells) == 0 {
		return 0, 0
	}
	return len(m.Cells), len(m.Cells[0])
}
