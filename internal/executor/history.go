package executor

// Mark records the execution status of a batch, a comment, or a command
// line. The string values are the vocabulary the upstream agent loop's
// diagnostics already use.
type Mark string

const (
	MarkBatchError     Mark = "api_call_error"
	MarkBatchCorrect   Mark = "api_call_correct"
	MarkCommentError   Mark = "comment_error"
	MarkCommentCorrect Mark = "comment_correct"
	MarkLineError      Mark = "code_run_error"
	MarkLineCorrect    Mark = "code_run_correct"
)

// BatchEntry records one whole command batch.
type BatchEntry struct {
	Mark     Mark   `json:"mark"`
	BatchID  string `json:"batch_id"`
	SlideIdx int    `json:"slide_idx"`
	Actions  string `json:"actions"`
}

// CommentEntry records one `#` comment line. A comment stays marked as an
// error until a later comment or a clean batch end proves the commands under
// it ran.
type CommentEntry struct {
	Mark Mark   `json:"mark"`
	Line string `json:"line"`
}

// LineEntry records one attempted command line with its failure trace, if
// any.
type LineEntry struct {
	Mark  Mark   `json:"mark"`
	Line  string `json:"line"`
	Trace string `json:"trace,omitempty"`
}

// History holds the three parallel diagnostic logs of a session. It informs
// retry feedback only; nothing reads it for control flow.
type History struct {
	Batches  []BatchEntry   `json:"batches"`
	Comments []CommentEntry `json:"comments"`
	Lines    []LineEntry    `json:"lines"`
}

// Merge appends another session's logs, preserving order. Used when
// sequential batches against the same slide are reported as one record.
func (h *History) Merge(other *History) {
	h.Batches = append(h.Batches, other.Batches...)
	h.Comments = append(h.Comments, other.Comments...)
	h.Lines = append(h.Lines, other.Lines...)
}
