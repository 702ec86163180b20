package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sqlpilot/sqlpilot/internal/workflow"
)

const (
	maxInputTextLength = 1000
	maxIterationsCeil  = 10
	defaultIterations  = 3
)

type text2sqlRequest struct {
	InputText     string `json:"input_text"`
	MaxIterations *int   `json:"max_iterations"`
	MetadataName  string `json:"metadata_name"`
}

type text2sqlResponse struct {
	Success           bool           `json:"success"`
	SQLQuery          string         `json:"sql_query"`
	Data              []workflow.Row `json:"data"`
	Summary           string         `json:"summary"`
	FollowupQuestions []string       `json:"followup_questions"`
	Chart             string         `json:"chart"`
	Metadata          string         `json:"metadata"`
}

func handleText2SQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workflow == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKFLOW_NOT_CONFIGURED", "workflow dependency is not configured", false, nil)
		return
	}

	var req text2sqlRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return
	}

	inputText := strings.TrimSpace(req.InputText)
	if inputText == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INPUT_TEXT_REQUIRED", "input_text is required", false, nil)
		return
	}
	if len(inputText) > maxInputTextLength {
		writeError(r.Context(), w, http.StatusBadRequest, "INPUT_TEXT_TOO_LONG", "input_text must be at most 1000 characters", false, nil)
		return
	}

	iterations := deps.DefaultIterations
	if iterations < 1 {
		iterations = defaultIterations
	}
	if req.MaxIterations != nil {
		iterations = *req.MaxIterations
		if iterations < 1 || iterations > maxIterationsCeil {
			writeError(r.Context(), w, http.StatusBadRequest, "MAX_ITERATIONS_OUT_OF_RANGE", "max_iterations must be between 1 and 10", false, nil)
			return
		}
	}

	final, err := deps.Workflow.Run(r.Context(), inputText, iterations, strings.TrimSpace(req.MetadataName))
	if err != nil {
		status := statusForKind(workflow.KindOf(err))
		extra := map[string]any{}
		if step := workflow.StepOf(err); step != "" {
			extra["step"] = step
		}
		writeError(r.Context(), w, status, errorCodeForKind(workflow.KindOf(err)), err.Error(), status >= http.StatusInternalServerError, extra)
		return
	}

	sqlQuery := final.CleanedQuery
	if sqlQuery == "" {
		sqlQuery = final.GeneratedSQL
	}
	data := final.Data
	if data == nil {
		data = []workflow.Row{}
	}
	followups := final.FollowupQuestions
	if followups == nil {
		followups = []string{}
	}
	writeJSON(w, http.StatusOK, text2sqlResponse{
		Success:           true,
		SQLQuery:          sqlQuery,
		Data:              data,
		Summary:           final.Summary,
		FollowupQuestions: followups,
		Chart:             final.Chart,
		Metadata:          final.Metadata,
	})
}

// statusForKind maps a workflow error kind to an HTTP status.
func statusForKind(kind workflow.Kind) int {
	switch kind {
	case workflow.KindValidation:
		return http.StatusBadRequest
	case workflow.KindLLM:
		return http.StatusBadGateway
	case workflow.KindDatabase:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCodeForKind(kind workflow.Kind) string {
	switch kind {
	case workflow.KindValidation:
		return "INVALID_REQUEST"
	case workflow.KindLLM:
		return "LLM_UNAVAILABLE"
	case workflow.KindDatabase:
		return "DATABASE_UNAVAILABLE"
	case workflow.KindConfiguration:
		return "MISCONFIGURED"
	case workflow.KindWorkflow:
		return "WORKFLOW_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
