// Package workflow implements the text2sql orchestration graph: a
// small step engine plus the domain steps it runs. A request flows
// from metadata loading through SQL generation, a bounded
// generate/validate retry cycle, execution, and summarization, with a
// refusal branch for questions the schema cannot answer.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/sqlpilot/sqlpilot/internal/observability"
)

// Node identifiers. These appear in logs, metrics, and error payloads.
const (
	NodeGetMetadata        = "get_metadata"
	NodeGenerateSQL        = "generate_sql"
	NodeValidateSQL        = "validate_sql"
	NodeExecuteSQL         = "execute_sql"
	NodeGenerateChart      = "generate_chart"
	NodeGenerateSummary    = "generate_summary"
	NodeGetFollowup        = "get_followup"
	NodeHandleUnanswerable = "handle_unanswerable"
)

// RouteAfterValidation decides what follows the validation step. An
// unanswerable question short-circuits to the refusal branch. A valid
// query, or one whose retry budget is exhausted, moves forward to
// execution. Anything else loops back for another generation attempt.
func RouteAfterValidation(state State) string {
	if state.IsUnanswerable {
		return NodeHandleUnanswerable
	}
	if state.IsValidSQL || state.RetryCount >= state.MaxIterations {
		return NodeExecuteSQL
	}
	return NodeGenerateSQL
}

// NewText2SQLGraph wires the step topology. Metadata loading fans out
// to generation and follow-up suggestions; execution fans out to chart
// and summary. All branches join before the run returns.
func NewText2SQLGraph(steps *Steps) (*Graph, error) {
	b := NewBuilder()

	b.AddNode(NodeGetMetadata, steps.GetMetadata)
	b.AddNode(NodeGenerateSQL, steps.GenerateSQL)
	b.AddNode(NodeValidateSQL, steps.ValidateSQL)
	b.AddNode(NodeExecuteSQL, steps.ExecuteSQL)
	b.AddNode(NodeGenerateChart, steps.GenerateChart)
	b.AddNode(NodeGenerateSummary, steps.GenerateSummary)
	b.AddNode(NodeGetFollowup, steps.GetFollowup)
	b.AddNode(NodeHandleUnanswerable, steps.HandleUnanswerable)

	b.SetEntryPoint(NodeGetMetadata)
	b.AddEdge(NodeGetMetadata, NodeGenerateSQL)
	b.AddEdge(NodeGetMetadata, NodeGetFollowup)
	b.AddEdge(NodeGenerateSQL, NodeValidateSQL)
	b.AddRouter(NodeValidateSQL, RouteAfterValidation,
		NodeExecuteSQL, NodeGenerateSQL, NodeHandleUnanswerable)
	b.AddEdge(NodeExecuteSQL, NodeGenerateChart)
	b.AddEdge(NodeExecuteSQL, NodeGenerateSummary)
	b.SetFinishPoint(NodeGenerateChart)
	b.SetFinishPoint(NodeGenerateSummary)
	b.SetFinishPoint(NodeGetFollowup)
	b.SetFinishPoint(NodeHandleUnanswerable)

	return b.Compile()
}

// Service runs the text2sql workflow for API callers.
type Service struct {
	engine *Engine
	logger *slog.Logger
}

// NewService compiles the graph over the given steps and returns a
// ready-to-run service.
func NewService(steps *Steps, logger *slog.Logger) (*Service, error) {
	graph, err := NewText2SQLGraph(steps)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(graph, logger)
	if err != nil {
		return nil, err
	}
	return &Service{
		engine: engine,
		logger: logger,
	}, nil
}

// Run executes one workflow pass over a fresh state.
func (s *Service) Run(ctx context.Context, inputText string, maxIterations int, metadataName string) (State, error) {
	if inputText == "" {
		return State{}, NewError(KindValidation, "", "input_text is required", nil)
	}
	if maxIterations < 1 {
		maxIterations = 1
	}

	initial := State{
		InputText:     inputText,
		MaxIterations: maxIterations,
		MetadataName:  metadataName,
	}

	start := time.Now()
	final, err := s.engine.Run(ctx, initial)
	observability.ObserveWorkflowRun(err == nil, time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "workflow run failed",
			slog.String("step", StepOf(err)),
			slog.Any("error", err))
		return State{}, err
	}
	s.logger.InfoContext(ctx, "workflow run completed",
		slog.Int("rows", len(final.Data)),
		slog.Int("retries", final.RetryCount),
		slog.Bool("unanswerable", final.IsUnanswerable),
		slog.Duration("duration", time.Since(start)))
	return final, nil
}
