package errinfo

import (
	"errors"
	"fmt"
)

// ErrorInfo is the structured error payload returned across the RPC boundary.
// The agent loop uses ErrorCode and Retryable to decide whether to re-prompt
// the model; Detail carries the human/model-readable message.
type ErrorInfo struct {
	ErrorCode string   `json:"error_code"`
	Phase     string   `json:"phase,omitempty"`
	Subphase  string   `json:"subphase,omitempty"`
	Retryable bool     `json:"retryable"`
	Actions   []string `json:"actions,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	SlideIdx  int      `json:"slide_idx,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	Trace     string   `json:"trace,omitempty"`
}

const (
	CodeUnknownOperation     = "UNKNOWN_OPERATION"
	CodeDefinitionNotAllowed = "DEFINITION_NOT_ALLOWED"
	CodeNoExecutableCommand  = "NO_EXECUTABLE_COMMAND"
	CodeArgumentInvalid      = "ARGUMENT_INVALID"
	CodeElementNotFound      = "ELEMENT_NOT_FOUND"
	CodeNotATextFrame        = "NOT_A_TEXT_FRAME"
	CodeNoValidParagraphs    = "NO_VALID_PARAGRAPHS"
	CodeParagraphNotFound    = "PARAGRAPH_NOT_FOUND"
	CodeNotAPicture          = "NOT_A_PICTURE"
	CodeImageNotFound        = "IMAGE_NOT_FOUND"
	CodeTableNotFound        = "TABLE_NOT_FOUND"
	CodeSandboxViolation     = "SANDBOX_VIOLATION"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeSessionSaved         = "SESSION_ALREADY_SAVED"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
)

const (
	ActionRetry        = "retry"
	ActionDiscard      = "discard_session"
	ActionCheckSession = "check_session"
)

const (
	PhaseParse   = "parse"
	PhaseExecute = "execute"
	PhaseSave    = "save"
	PhaseSession = "session"
	PhaseDiag    = "diagnostics"
)

// EditError is a recoverable slide-edit failure. Its message is written to be
// read back by the model on the next retry round, so it must name the invalid
// input and the valid alternatives.
type EditError struct {
	Code   string
	Detail string
}

func (e *EditError) Error() string { return e.Detail }

// Editf builds an EditError with a formatted detail message.
func Editf(code, format string, args ...any) *EditError {
	return &EditError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// AsEdit unwraps err into an EditError, or nil when err is not one.
func AsEdit(err error) *EditError {
	var e *EditError
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func SessionNotFound(sessionID string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeSessionNotFound,
		Phase:     PhaseSession,
		Retryable: false,
		Actions:   []string{ActionCheckSession},
		SessionID: sessionID,
	}
}

func ValidationFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeValidationFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func StoreUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeStoreUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func Internal(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeInternal,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}
