package engine

import (
	"context"
	"encoding/json"

	"github.com/SnowriterMYX/PPTAgent/internal/command"
	"github.com/SnowriterMYX/PPTAgent/internal/document"
	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
	"github.com/SnowriterMYX/PPTAgent/internal/slide"
)

// RPC method handlers. Params and results are plain JSON structs; failures
// come back as errinfo payloads the agent loop can branch on.

func (e *Engine) EngineGetInfo(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	return map[string]any{
		"engine_version": EngineVersion,
		"api_version":    APIVersion,
		"retry_times":    e.settings.RetryTimes,
	}, nil
}

func (e *Engine) OperationDocs(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	return map[string]any{"docs": command.Docs()}, nil
}

type slideLoadParams struct {
	Slide    json.RawMessage `json:"slide"`
	Document json.RawMessage `json:"document,omitempty"`
}

// SlideLoad opens an edit session around a serialized slide. A document may
// be attached inline or later via DocumentLoad.
func (e *Engine) SlideLoad(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p slideLoadParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSession, "invalid params: "+err.Error())
	}
	if len(p.Slide) == 0 {
		return nil, errinfo.ValidationFailed(errinfo.PhaseParse, "missing slide")
	}
	sl, err := slide.Load(p.Slide)
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseParse, err.Error())
	}
	var doc *document.Document
	if len(p.Document) != 0 {
		doc, err = document.Load(p.Document)
		if err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseParse, err.Error())
		}
	}
	s := e.OpenSession(sl, doc)
	return map[string]any{"session_id": s.ID, "slide_idx": sl.SlideIdx}, nil
}

type documentLoadParams struct {
	SessionID string          `json:"session_id"`
	Document  json.RawMessage `json:"document"`
}

// DocumentLoad attaches the source document to an open session, enabling the
// structured-table redirect for replace_image.
func (e *Engine) DocumentLoad(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p documentLoadParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSession, "invalid params: "+err.Error())
	}
	s := e.session(p.SessionID)
	if s == nil {
		return nil, errinfo.SessionNotFound(p.SessionID)
	}
	if len(p.Document) == 0 {
		return nil, errinfo.ValidationFailed(errinfo.PhaseParse, "missing document")
	}
	doc, err := document.Load(p.Document)
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseParse, err.Error())
	}
	s.Doc = doc
	tables := 0
	doc.Tables(func(*document.Media) bool {
		tables++
		return true
	})
	return map[string]any{"session_id": s.ID, "tables": tables}, nil
}

type executeParams struct {
	SessionID string `json:"session_id"`
	Actions   string `json:"actions"`
	FoundCode bool   `json:"found_code"`
}

func (e *Engine) ExecuteActions(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p executeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseExecute, "invalid params: "+err.Error())
	}
	s := e.session(p.SessionID)
	if s == nil {
		return nil, errinfo.SessionNotFound(p.SessionID)
	}
	res, err := e.Execute(ctx, s, p.Actions, p.FoundCode)
	if err != nil {
		return nil, sessionSaved(errinfo.PhaseExecute, s.ID, err)
	}
	return res, nil
}

// sessionSaved maps the engine's already-saved rejection onto the wire. A
// saved session cannot be edited again, so the only way forward is to
// discard it and open a fresh one.
func sessionSaved(phase, sessionID string, err error) *errinfo.ErrorInfo {
	return &errinfo.ErrorInfo{
		ErrorCode: errinfo.CodeSessionSaved,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{errinfo.ActionDiscard},
		SessionID: sessionID,
		Detail:    err.Error(),
	}
}

type sessionParams struct {
	SessionID string `json:"session_id"`
}

func (e *Engine) SessionState(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p sessionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSession, "invalid params: "+err.Error())
	}
	s := e.session(p.SessionID)
	if s == nil {
		return nil, errinfo.SessionNotFound(p.SessionID)
	}
	state, err := s.Slide.Marshal()
	if err != nil {
		return nil, errinfo.Internal(errinfo.PhaseSession, err.Error())
	}
	return map[string]any{
		"session_id": s.ID,
		"slide":      json.RawMessage(state),
		"history":    s.Exec.History(),
	}, nil
}

func (e *Engine) SlideSave(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p sessionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSave, "invalid params: "+err.Error())
	}
	s := e.session(p.SessionID)
	if s == nil {
		return nil, errinfo.SessionNotFound(p.SessionID)
	}
	plan, err := e.Save(s)
	if err != nil {
		return nil, sessionSaved(errinfo.PhaseSave, s.ID, err)
	}
	state, merr := s.Slide.Marshal()
	if merr != nil {
		return nil, errinfo.Internal(errinfo.PhaseSave, merr.Error())
	}
	if plan == nil {
		plan = []slide.PlannedOp{}
	}
	return map[string]any{
		"session_id": s.ID,
		"slide":      json.RawMessage(state),
		"operations": plan,
	}, nil
}

func (e *Engine) SessionDiscard(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p sessionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSession, "invalid params: "+err.Error())
	}
	if !e.Discard(p.SessionID) {
		return nil, errinfo.SessionNotFound(p.SessionID)
	}
	return map[string]any{"discarded": true}, nil
}

func (e *Engine) DiagnosticsReport(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	if e.diag == nil {
		return nil, errinfo.StoreUnavailable(errinfo.PhaseDiag, "diagnostics store is disabled")
	}
	report, err := e.diag.Report(ctx)
	if err != nil {
		return nil, errinfo.StoreUnavailable(errinfo.PhaseDiag, err.Error())
	}
	return report, nil
}
