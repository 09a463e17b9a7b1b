// Package executor runs one batch of model-emitted edit commands against a
// slide's shadow model. The loop is fail-fast: the first bad line aborts the
// rest of the batch and comes back annotated for the retry round; lines that
// already ran are not rolled back.
package executor

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"github.com/SnowriterMYX/PPTAgent/internal/assets"
	"github.com/SnowriterMYX/PPTAgent/internal/command"
	"github.com/SnowriterMYX/PPTAgent/internal/document"
	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
	"github.com/SnowriterMYX/PPTAgent/internal/logging"
	"github.com/SnowriterMYX/PPTAgent/internal/slide"
)

// Executor executes command batches and keeps the session's diagnostic
// history. One Executor serves one slide's edit session; it is not
// reentrant.
type Executor struct {
	logger        *slog.Logger
	assets        *assets.Store
	retryTimes    int
	maxBatchLines int
	history       History
	stats         stats
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

func WithAssets(store *assets.Store) Option {
	return func(e *Executor) { e.assets = store }
}

// WithRetryTimes sets the retry budget reported to the external agent loop.
func WithRetryTimes(n int) Option {
	return func(e *Executor) { e.retryTimes = n }
}

func WithMaxBatchLines(n int) Option {
	return func(e *Executor) { e.maxBatchLines = n }
}

func New(opts ...Option) *Executor {
	e := &Executor{
		logger:        logging.Nop(),
		assets:        assets.NewStore(""),
		retryTimes:    5,
		maxBatchLines: 200,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RetryTimes returns the caller-supplied retry budget. The executor never
// retries internally.
func (e *Executor) RetryTimes() int { return e.retryTimes }

// History exposes the session's diagnostic logs.
func (e *Executor) History() *History { return &e.history }

// Failure describes the first failed line of a batch: the annotated command
// listing and the trace are the feedback channel for the agent loop's next
// attempt.
type Failure struct {
	BatchID   string `json:"batch_id"`
	Code      string `json:"code"`
	LineNo    int    `json:"line_no"`
	Line      string `json:"line"`
	Annotated string `json:"annotated"`
	Trace     string `json:"trace"`
}

// ExecuteActions runs one batch against the slide. doc supplies the table
// store for structured image replacement and may be nil. foundCode reports
// whether the upstream extractor saw a fenced code block; when false, a
// batch reaching its last line without any valid command fails instead of
// silently accepting pure prose.
//
// A nil return means every line ran. On failure the remaining lines are
// never evaluated, and applied lines stay applied.
func (e *Executor) ExecuteActions(actions string, sl *slide.SlidePage, doc *document.Document, foundCode bool) *Failure {
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(actions, "\r\n", "\n")), "\n")
	batchID := uuid.NewString()
	logger := e.logger.With("batch", batchID, "slide", sl.SlideIdx)
	logger.Debug("executor.batch_start", "lines", len(lines), "actions", logging.Trim(actions))

	e.stats.batches++
	e.history.Batches = append(e.history.Batches, BatchEntry{
		Mark: MarkBatchError, BatchID: batchID, SlideIdx: sl.SlideIdx, Actions: actions,
	})

	if len(lines) > e.maxBatchLines {
		err := errinfo.Editf(errinfo.CodeValidationFailed,
			"The batch has %d lines, more than the %d allowed.", len(lines), e.maxBatchLines)
		return e.fail(logger, batchID, lines, 0, -1, err)
	}

	for i, line := range lines {
		if i == len(lines)-1 && !foundCode {
			err := errinfo.Editf(errinfo.CodeNoExecutableCommand,
				"No code block found in the output, please output the api calls without any prefix.")
			return e.fail(logger, batchID, lines, i, -1, err)
		}
		switch command.Classify(line) {
		case command.LineBlank, command.LineProse:
			continue
		case command.LineComment:
			if n := len(e.history.Comments); n != 0 {
				e.history.Comments[n-1].Mark = MarkCommentCorrect
			}
			e.history.Comments = append(e.history.Comments, CommentEntry{Mark: MarkCommentError, Line: line})
			continue
		case command.LineDefinition:
			err := errinfo.Editf(errinfo.CodeDefinitionNotAllowed, "Function definitions are not allowed.")
			return e.fail(logger, batchID, lines, i, -1, err)
		}

		foundCode = true
		cmd, err := command.Parse(line)
		if err != nil {
			return e.fail(logger, batchID, lines, i, -1, err)
		}
		e.history.Lines = append(e.history.Lines, LineEntry{Mark: MarkLineError, Line: line})
		if err := e.run(cmd, sl, doc); err != nil {
			return e.fail(logger, batchID, lines, i, len(e.history.Lines)-1, err)
		}
		e.history.Lines[len(e.history.Lines)-1].Mark = MarkLineCorrect
	}

	if n := len(e.history.Comments); n != 0 {
		e.history.Comments[n-1].Mark = MarkCommentCorrect
	}
	e.history.Batches[len(e.history.Batches)-1].Mark = MarkBatchCorrect
	e.stats.succeeded++
	logger.Debug("executor.batch_ok")
	return nil
}

// run dispatches one validated command. Panics from operation code are
// surfaced as internal errors carrying the stack, so a bug in one operation
// fails its batch instead of the process.
func (e *Executor) run(cmd command.Command, sl *slide.SlidePage, doc *document.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &internalError{message: fmt.Sprint(r), stack: string(debug.Stack())}
		}
	}()
	switch c := cmd.(type) {
	case command.DelParagraph:
		return e.delParagraph(sl, c)
	case command.ReplaceParagraph:
		return e.replaceParagraph(sl, c)
	case command.CloneParagraph:
		return e.cloneParagraph(sl, c)
	case command.DelImage:
		return e.delImage(sl, c)
	case command.ReplaceImage:
		return e.replaceImage(sl, doc, c)
	default:
		return &internalError{message: fmt.Sprintf("unhandled command %T", cmd)}
	}
}

// fail records the failure. entryIdx is the index of the history entry
// appended for the failing line, or -1 when the line never produced one
// (parse and batch-level failures).
func (e *Executor) fail(logger *slog.Logger, batchID string, lines []string, lineIdx, entryIdx int, err error) *Failure {
	line := lines[lineIdx]
	edit := errinfo.AsEdit(err)
	code := errinfo.CodeInternal
	trace := ""
	if edit != nil {
		code = edit.Code
		trace = "SlideEditError: " + edit.Detail
		logger.Debug("executor.edit_error", "code", code, "line", line, "error", edit.Detail)
	} else {
		var internal *internalError
		if asInternal(err, &internal) {
			trace = internal.Trace()
		} else {
			trace = err.Error()
		}
		logger.Warn("executor.unknown_error", "line", line, "error", err.Error())
	}

	if entryIdx >= 0 {
		e.history.Lines[entryIdx].Trace = trace
	}
	e.stats.failed++
	e.stats.countFailure(code)

	return &Failure{
		BatchID:   batchID,
		Code:      code,
		LineNo:    lineIdx + 1,
		Line:      line,
		Annotated: annotate(lines, lineIdx),
		Trace:     trace,
	}
}

// annotate rebuilds the batch text with the failing line marked in place.
func annotate(lines []string, lineIdx int) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i == lineIdx {
			b.WriteString("--> Error Line: ")
		}
		b.WriteString(line)
	}
	return b.String()
}
