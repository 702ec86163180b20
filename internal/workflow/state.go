package workflow

// Row is a single result record keyed by column name.
type Row = map[string]any

// State is the shared record a run accumulates as its nodes execute.
// Zero values are the typed defaults for fields no node has written yet;
// reads never fail. Each run owns its own instance, so no locking is
// needed for sequential access; the engine serializes merges itself.
type State struct {
	InputText          string
	MaxIterations      int
	MetadataName       string
	RetryCount         int
	Metadata           string
	GeneratedSQL       string
	IsUnanswerable     bool
	UnanswerableReason string
	CleanedQuery       string
	IsValidSQL         bool
	Data               []Row
	Summary            string
	Chart              string
	FollowupQuestions  []string
}

// Update is the partial record a node returns. A nil field is "not
// written"; a non-nil field overwrites the corresponding State field on
// merge. Slice fields use pointers so a node can write an explicitly
// empty value.
type Update struct {
	RetryCount         *int
	Metadata           *string
	GeneratedSQL       *string
	IsUnanswerable     *bool
	UnanswerableReason *string
	CleanedQuery       *string
	IsValidSQL         *bool
	Data               *[]Row
	Summary            *string
	Chart              *string
	FollowupQuestions  *[]string
}

// Fields lists the names of the fields this update writes, using the
// wire-level names callers see in responses and error messages.
func (u Update) Fields() []string {
	var fields []string
	if u.RetryCount != nil {
		fields = append(fields, "retry_count")
	}
	if u.Metadata != nil {
		fields = append(fields, "metadata")
	}
	if u.GeneratedSQL != nil {
		fields = append(fields, "generated_sql_query")
	}
	if u.IsUnanswerable != nil {
		fields = append(fields, "is_unanswerable")
	}
	if u.UnanswerableReason != nil {
		fields = append(fields, "unanswerable_reason")
	}
	if u.CleanedQuery != nil {
		fields = append(fields, "cleaned_query")
	}
	if u.IsValidSQL != nil {
		fields = append(fields, "is_valid_sql")
	}
	if u.Data != nil {
		fields = append(fields, "data")
	}
	if u.Summary != nil {
		fields = append(fields, "summary")
	}
	if u.Chart != nil {
		fields = append(fields, "chart")
	}
	if u.FollowupQuestions != nil {
		fields = append(fields, "followup_que")
	}
	return fields
}

// Apply merges the update into the state. Present fields overwrite;
// absent fields are untouched. Applying the same update twice yields the
// same state.
func (s *State) Apply(u Update) {
	if u.RetryCount != nil {
		s.RetryCount = *u.RetryCount
	}
	if u.Metadata != nil {
		s.Metadata = *u.Metadata
	}
	if u.GeneratedSQL != nil {
		s.GeneratedSQL = *u.GeneratedSQL
	}
	if u.IsUnanswerable != nil {
		s.IsUnanswerable = *u.IsUnanswerable
	}
	if u.UnanswerableReason != nil {
		s.UnanswerableReason = *u.UnanswerableReason
	}
	if u.CleanedQuery != nil {
		s.CleanedQuery = *u.CleanedQuery
	}
	if u.IsValidSQL != nil {
		s.IsValidSQL = *u.IsValidSQL
	}
	if u.Data != nil {
		s.Data = *u.Data
	}
	if u.Summary != nil {
		s.Summary = *u.Summary
	}
	if u.Chart != nil {
		s.Chart = *u.Chart
	}
	if u.FollowupQuestions != nil {
		s.FollowupQuestions = *u.FollowupQuestions
	}
}

// Setter helpers keep step code free of one-off pointer temporaries.

func setString(v string) *string      { return &v }
func setInt(v int) *int               { return &v }
func setBool(v bool) *bool            { return &v }
func setRows(v []Row) *[]Row          { return &v }
func setStrings(v []string) *[]string { return &v }
