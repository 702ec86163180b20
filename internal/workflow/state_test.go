package workflow

import (
	"reflect"
	"testing"
)

func TestApplyOverwritesOnlyPresentFields(t *testing.T) {
	state := State{
		InputText:     "question",
		MaxIterations: 3,
		GeneratedSQL:  "SELECT 1",
		RetryCount:    1,
	}

	state.Apply(Update{
		CleanedQuery: setString("SELECT 1 LIMIT 1000"),
		IsValidSQL:   setBool(true),
		RetryCount:   setInt(2),
	})

	if state.GeneratedSQL != "SELECT 1" {
		t.Fatalf("GeneratedSQL = %q", state.GeneratedSQL)
	}
	if state.CleanedQuery != "SELECT 1 LIMIT 1000" {
		t.Fatalf("CleanedQuery = %q", state.CleanedQuery)
	}
	if !state.IsValidSQL {
		t.Fatal("IsValidSQL = false")
	}
	if state.RetryCount != 2 {
		t.Fatalf("RetryCount = %d", state.RetryCount)
	}
	if state.InputText != "question" {
		t.Fatalf("InputText = %q", state.InputText)
	}
}

func TestApplyIsIdempotentPerUpdate(t *testing.T) {
	update := Update{
		Summary: setString("done"),
		Data:    setRows([]Row{{"n": 1}}),
	}

	var first, second State
	first.Apply(update)
	second.Apply(update)
	second.Apply(update)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("states diverged: %#v vs %#v", first, second)
	}
}

func TestApplyCanWriteExplicitlyEmptyValues(t *testing.T) {
	state := State{
		Data:              []Row{{"n": 1}},
		FollowupQuestions: []string{"q"},
	}
	state.Apply(Update{
		Data:              setRows([]Row{}),
		FollowupQuestions: setStrings([]string{}),
	})
	if len(state.Data) != 0 || state.Data == nil {
		t.Fatalf("Data = %#v", state.Data)
	}
	if len(state.FollowupQuestions) != 0 || state.FollowupQuestions == nil {
		t.Fatalf("FollowupQuestions = %#v", state.FollowupQuestions)
	}
}

func TestFieldsNamesWrittenFields(t *testing.T) {
	update := Update{
		RetryCount:   setInt(1),
		CleanedQuery: setString("SELECT 1"),
		IsValidSQL:   setBool(false),
	}
	want := []string{"retry_count", "cleaned_query", "is_valid_sql"}
	if got := update.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %#v, want %#v", got, want)
	}

	if got := (Update{}).Fields(); len(got) != 0 {
		t.Fatalf("empty update Fields() = %#v", got)
	}
}
