// Package command turns one line of model output into a validated, typed
// edit command. The allow-list is closed: anything the parser cannot bind to
// one of the registered operations is either ignored (stray prose) or
// rejected with a message the model can act on.
package command

import (
	"strings"

	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
)

// Command is one validated operation with typed arguments. The set of
// implementations is closed; the executor matches exhaustively on it.
type Command interface {
	Name() string
}

type DelParagraph struct {
	DivID       int
	ParagraphID int
}

func (DelParagraph) Name() string { return "del_paragraph" }

type ReplaceParagraph struct {
	DivID       int
	ParagraphID int
	Text        string
}

func (ReplaceParagraph) Name() string { return "replace_paragraph" }

type CloneParagraph struct {
	DivID       int
	ParagraphID int
}

func (CloneParagraph) Name() string { return "clone_paragraph" }

type DelImage struct {
	FigureID int
}

func (DelImage) Name() string { return "del_image" }

type ReplaceImage struct {
	ImgID     int
	ImagePath string
}

func (ReplaceImage) Name() string { return "replace_image" }

// Spec documents one registered operation for the upstream prompt builder.
type Spec struct {
	Name      string
	Signature string
	Doc       string
}

var registry = []Spec{
	{
		Name:      "replace_image",
		Signature: "def replace_image(img_id: int, image_path: str)",
		Doc:       "Replace an image in the slide with the image at image_path. Fails if the path does not exist.",
	},
	{
		Name:      "del_image",
		Signature: "def del_image(figure_id: int)",
		Doc:       "Delete an image from the slide.",
	},
	{
		Name:      "clone_paragraph",
		Signature: "def clone_paragraph(div_id: int, paragraph_id: int)",
		Doc: "Clone a paragraph in the given element.\n" +
			"\tMention: the cloned paragraph will have a paragraph_id one greater than the current maximum in the parent element.",
	},
	{
		Name:      "replace_paragraph",
		Signature: "def replace_paragraph(div_id: int, paragraph_id: int, text: str)",
		Doc:       "Replace the text of a paragraph in the given element. Inline markdown (bold, italic, code, strikethrough, links) is honored.",
	},
	{
		Name:      "del_paragraph",
		Signature: "def del_paragraph(div_id: int, paragraph_id: int)",
		Doc:       "Delete a paragraph from the given element.",
	},
}

// Registry returns the fixed operation allow-list.
func Registry() []Spec {
	out := make([]Spec, len(registry))
	copy(out, registry)
	return out
}

// Registered reports whether name is a registered operation.
func Registered(name string) bool {
	for _, s := range registry {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Docs renders the operation surface the way the upstream prompt builder
// presents it to the model.
func Docs() string {
	var b strings.Builder
	for i, s := range registry {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Signature)
		b.WriteString("\n\t")
		b.WriteString(s.Doc)
	}
	return b.String()
}

func bind(name string, args []Value) (Command, error) {
	switch name {
	case "del_paragraph":
		divID, paragraphID, err := twoInts(name, args)
		if err != nil {
			return nil, err
		}
		return DelParagraph{DivID: divID, ParagraphID: paragraphID}, nil
	case "clone_paragraph":
		divID, paragraphID, err := twoInts(name, args)
		if err != nil {
			return nil, err
		}
		return CloneParagraph{DivID: divID, ParagraphID: paragraphID}, nil
	case "replace_paragraph":
		if err := arity(name, args, 3); err != nil {
			return nil, err
		}
		divID, err := argInt(name, args, 0, "div_id")
		if err != nil {
			return nil, err
		}
		paragraphID, err := argInt(name, args, 1, "paragraph_id")
		if err != nil {
			return nil, err
		}
		text, err := argStr(name, args, 2, "text")
		if err != nil {
			return nil, err
		}
		return ReplaceParagraph{DivID: divID, ParagraphID: paragraphID, Text: text}, nil
	case "del_image":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		figureID, err := argInt(name, args, 0, "figure_id")
		if err != nil {
			return nil, err
		}
		return DelImage{FigureID: figureID}, nil
	case "replace_image":
		if err := arity(name, args, 2); err != nil {
			return nil, err
		}
		imgID, err := argInt(name, args, 0, "img_id")
		if err != nil {
			return nil, err
		}
		path, err := argStr(name, args, 1, "image_path")
		if err != nil {
			return nil, err
		}
		return ReplaceImage{ImgID: imgID, ImagePath: path}, nil
	default:
		return nil, errinfo.Editf(errinfo.CodeUnknownOperation, "The function %s is not defined.", name)
	}
}

func twoInts(name string, args []Value) (int, int, error) {
	if err := arity(name, args, 2); err != nil {
		return 0, 0, err
	}
	a, err := argInt(name, args, 0, "div_id")
	if err != nil {
		return 0, 0, err
	}
	b, err := argInt(name, args, 1, "paragraph_id")
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func arity(name string, args []Value, want int) error {
	if len(args) != want {
		return errinfo.Editf(errinfo.CodeArgumentInvalid,
			"%s takes %d arguments but %d were given. Signature: %s",
			name, want, len(args), signatureOf(name))
	}
	return nil
}

func argInt(name string, args []Value, pos int, param string) (int, error) {
	v := args[pos]
	n, ok := v.AsInt()
	if !ok {
		return 0, errinfo.Editf(errinfo.CodeArgumentInvalid,
			"%s: argument %s must be an integer, got %s. Signature: %s",
			name, param, v.Kind, signatureOf(name))
	}
	return n, nil
}

func argStr(name string, args []Value, pos int, param string) (string, error) {
	v := args[pos]
	if v.Kind != ValStr {
		return "", errinfo.Editf(errinfo.CodeArgumentInvalid,
			"%s: argument %s must be a string, got %s. Signature: %s",
			name, param, v.Kind, signatureOf(name))
	}
	return v.Str, nil
}

func signatureOf(name string) string {
	for _, s := range registry {
		if s.Name == name {
			return s.Signature
		}
	}
	return name
}
