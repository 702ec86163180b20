package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sqlpilot/sqlpilot/internal/llm"
	"github.com/sqlpilot/sqlpilot/internal/metadata"
	"github.com/sqlpilot/sqlpilot/internal/sqlexec"
)

const defaultFollowupCount = 3

// Steps holds the collaborators the domain steps delegate to. Every
// step is a pure function of the state snapshot plus these
// collaborators; all mutation happens through the returned Update.
type Steps struct {
	Completions llm.Client
	DB          sqlexec.Executor
	Metadata    metadata.Provider
	Logger      *slog.Logger

	// Model is the completion model used for every prompt.
	Model string
	// MaxRows caps result sizes via the normalizer (default MaxQueryRows).
	MaxRows int
	// FollowupCount is how many follow-up questions to request (default 3).
	FollowupCount int
}

func (s *Steps) maxRows() int {
	if s.MaxRows > 0 {
		return s.MaxRows
	}
	return MaxQueryRows
}

func (s *Steps) followupCount() int {
	if s.FollowupCount > 0 {
		return s.FollowupCount
	}
	return defaultFollowupCount
}

func (s *Steps) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// GetMetadata loads the schema description the prompts depend on.
func (s *Steps) GetMetadata(ctx context.Context, state State) (Update, error) {
	content, err := s.Metadata.Load(ctx, state.MetadataName)
	if err != nil {
		return Update{}, NewError(KindWorkflow, NodeGetMetadata, "failed to load metadata", err)
	}
	return Update{Metadata: setString(content)}, nil
}

// GenerateSQL asks the completion provider for a query, or records the
// refusal when the provider reports the question unanswerable.
func (s *Steps) GenerateSQL(ctx context.Context, state State) (Update, error) {
	if strings.TrimSpace(state.InputText) == "" {
		return Update{}, NewError(KindValidation, NodeGenerateSQL, "input_text is required", nil)
	}
	if strings.TrimSpace(state.Metadata) == "" {
		return Update{}, NewError(KindWorkflow, NodeGenerateSQL, "metadata is required before SQL generation", nil)
	}

	userPrompt := fmt.Sprintf("Question: %s\nDatabase schema metadata: %s", state.InputText, state.Metadata)
	response, err := s.Completions.Complete(ctx, llm.Request{
		SystemPrompt: generationSystemPrompt,
		UserPrompt:   userPrompt,
		Model:        s.Model,
		Temperature:  generationTemperature,
	})
	if err != nil {
		return Update{}, NewError(KindLLM, NodeGenerateSQL, "failed to generate SQL query", err)
	}

	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(strings.ToUpper(trimmed), unanswerableMarker) {
		reason := strings.TrimSpace(trimmed[len(unanswerableMarker):])
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
		s.logger().InfoContext(ctx, "question reported unanswerable", slog.String("reason", reason))
		return Update{
			GeneratedSQL:       setString(""),
			IsUnanswerable:     setBool(true),
			UnanswerableReason: setString(reason),
		}, nil
	}
	return Update{GeneratedSQL: setString(trimmed)}, nil
}

// ValidateSQL normalizes the generated query and asks the provider for
// a verdict. It increments the retry counter on every visit, which is
// what bounds the generate/validate cycle. A categorized provider
// failure degrades to an invalid verdict rather than aborting the run.
func (s *Steps) ValidateSQL(ctx context.Context, state State) (Update, error) {
	update := Update{RetryCount: setInt(state.RetryCount + 1)}

	if strings.TrimSpace(state.GeneratedSQL) == "" {
		update.CleanedQuery = setString("")
		update.IsValidSQL = setBool(false)
		return update, nil
	}

	cleaned := Normalize(state.GeneratedSQL, s.maxRows())
	update.CleanedQuery = setString(cleaned)
	if cleaned == "" {
		update.IsValidSQL = setBool(false)
		return update, nil
	}
	if strings.TrimSpace(state.Metadata) == "" {
		// Cannot check schema compliance without it; accept and let
		// execution decide.
		update.IsValidSQL = setBool(true)
		return update, nil
	}

	userPrompt := fmt.Sprintf(
		"Database schema metadata:\n%s\n\nSQL query to validate:\n%s\n\nIs this SQL query valid? Respond with only \"VALID\" or \"INVALID\".",
		state.Metadata, cleaned)
	verdict, err := s.Completions.Complete(ctx, llm.Request{
		SystemPrompt: validationSystemPrompt,
		UserPrompt:   userPrompt,
		Model:        s.Model,
		Temperature:  validationTemperature,
	})
	if err != nil {
		if llm.CategoryOf(err) != "" {
			s.logger().WarnContext(ctx, "validation completion failed, treating query as invalid",
				slog.Any("error", err))
			update.IsValidSQL = setBool(false)
			return update, nil
		}
		return Update{}, NewError(KindWorkflow, NodeValidateSQL, "sql validation failed", err)
	}

	upper := strings.ToUpper(strings.TrimSpace(verdict))
	update.IsValidSQL = setBool(strings.Contains(upper, "VALID") && !strings.Contains(upper, "INVALID"))
	return update, nil
}

// ExecuteSQL runs the cleaned query, falling back to the raw generated
// query when normalization never produced one.
func (s *Steps) ExecuteSQL(ctx context.Context, state State) (Update, error) {
	sqlToRun := strings.TrimSpace(state.CleanedQuery)
	if sqlToRun == "" {
		sqlToRun = strings.TrimSpace(state.GeneratedSQL)
	}
	if sqlToRun == "" {
		return Update{}, NewError(KindWorkflow, NodeExecuteSQL, "no sql query available to execute", nil)
	}

	rows, err := s.DB.Query(ctx, sqlToRun)
	if err != nil {
		return Update{}, NewError(KindDatabase, NodeExecuteSQL, "failed to execute sql query", err)
	}
	s.logger().DebugContext(ctx, "sql query executed", slog.Int("rows", len(rows)))
	return Update{Data: setRows(rows)}, nil
}

// GenerateSummary produces the analyst summary. It is the only step
// with a local fallback: a completion failure degrades to a
// deterministic row/column-count sentence instead of failing the run.
func (s *Steps) GenerateSummary(ctx context.Context, state State) (Update, error) {
	if len(state.Data) == 0 {
		return Update{Summary: setString("No data available to summarize.")}, nil
	}

	userPrompt, err := buildSummaryPrompt(state.Data)
	if err != nil {
		s.logger().WarnContext(ctx, "summary prompt build failed, using fallback", slog.Any("error", err))
		return Update{Summary: setString(fallbackSummary(state.Data))}, nil
	}

	summary, err := s.Completions.Complete(ctx, llm.Request{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   userPrompt,
		Model:        s.Model,
		Temperature:  summaryTemperature,
	})
	if err != nil {
		s.logger().WarnContext(ctx, "summary completion failed, using fallback", slog.Any("error", err))
		return Update{Summary: setString(fallbackSummary(state.Data))}, nil
	}
	return Update{Summary: setString(clampSummaryLines(summary, 5))}, nil
}

// GenerateChart is a placeholder: chart rendering happens elsewhere.
func (s *Steps) GenerateChart(_ context.Context, _ State) (Update, error) {
	return Update{Chart: setString("")}, nil
}

// GetFollowup suggests questions answerable from the schema. Missing
// metadata yields an empty list, not a failure.
func (s *Steps) GetFollowup(ctx context.Context, state State) (Update, error) {
	if strings.TrimSpace(state.Metadata) == "" {
		return Update{FollowupQuestions: setStrings([]string{})}, nil
	}

	count := s.followupCount()
	userPrompt := fmt.Sprintf(
		"Database schema metadata: %s\n\nGenerate exactly %d relevant business questions that can be answered using this database.\nOutput only the questions, one per line, without any numbering or formatting.",
		state.Metadata, count)
	response, err := s.Completions.Complete(ctx, llm.Request{
		SystemPrompt: followupSystemPrompt,
		UserPrompt:   userPrompt,
		Model:        s.Model,
		Temperature:  followupTemperature,
	})
	if err != nil {
		return Update{}, NewError(KindLLM, NodeGetFollowup, "failed to generate followup questions", err)
	}

	return Update{FollowupQuestions: setStrings(parseQuestions(response, count))}, nil
}

// HandleUnanswerable explains the refusal without calling any
// collaborator.
func (s *Steps) HandleUnanswerable(_ context.Context, state State) (Update, error) {
	reason := strings.TrimSpace(state.UnanswerableReason)
	if reason == "" {
		reason = defaultUnanswerableReason
	}
	summary := fmt.Sprintf("I cannot answer this question because: %s\n\n%s", reason, unanswerableTopicHint)
	return Update{
		Data:    setRows([]Row{}),
		Summary: setString(summary),
	}, nil
}

func parseQuestions(response string, count int) []string {
	questions := make([]string, 0, count)
	for _, line := range strings.Split(response, "\n") {
		question := strings.TrimSpace(line)
		question = strings.TrimSpace(strings.TrimLeft(question, "0123456789.-) "))
		if question == "" {
			continue
		}
		questions = append(questions, question)
		if len(questions) == count {
			break
		}
	}
	return questions
}

const summarySampleRows = 10

func buildSummaryPrompt(data []Row) (string, error) {
	columns := columnNames(data)

	sample := data
	if len(sample) > summarySampleRows {
		sample = sample[:summarySampleRows]
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sample rows: %w", err)
	}

	statsText := "No numeric columns"
	if stats := numericColumnStats(data, columns); len(stats) > 0 {
		statsJSON, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal numeric stats: %w", err)
		}
		statsText = string(statsJSON)
	}

	return fmt.Sprintf(
		"Analyze the following query results and generate a 4-5 line summary:\n\nData Overview:\n- Number of rows: %d\n- Number of columns: %d\n- Column names: %s\n\nSample data (first %d rows):\n%s\n\nNumeric column statistics:\n%s\n\nGenerate a concise 4-5 line summary that highlights the key insights from this data.",
		len(data), len(columns), strings.Join(columns, ", "),
		len(sample), string(sampleJSON), statsText), nil
}

type columnStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Sum  float64 `json:"sum"`
}

// numericColumnStats summarizes columns whose non-null values are all
// numeric.
func numericColumnStats(data []Row, columns []string) map[string]columnStats {
	stats := make(map[string]columnStats)
	for _, column := range columns {
		var values []float64
		numeric := true
		for _, row := range data {
			value, ok := row[column]
			if !ok || value == nil {
				continue
			}
			number, ok := asFloat(value)
			if !ok {
				numeric = false
				break
			}
			values = append(values, number)
		}
		if !numeric || len(values) == 0 {
			continue
		}
		entry := columnStats{Min: values[0], Max: values[0]}
		for _, number := range values {
			if number < entry.Min {
				entry.Min = number
			}
			if number > entry.Max {
				entry.Max = number
			}
			entry.Sum += number
		}
		entry.Mean = entry.Sum / float64(len(values))
		stats[column] = entry
	}
	return stats
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func fallbackSummary(data []Row) string {
	columns := columnNames(data)
	return fmt.Sprintf("Query returned %d rows with %d columns: %s.",
		len(data), len(columns), strings.Join(columns, ", "))
}

func columnNames(data []Row) []string {
	if len(data) == 0 {
		return nil
	}
	columns := make([]string, 0, len(data[0]))
	for column := range data[0] {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func clampSummaryLines(summary string, maxLines int) string {
	var lines []string
	for _, line := range strings.Split(summary, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}
