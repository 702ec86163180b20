package workflow

// Prompt contracts for the completion provider. The generation prompt
// must elicit either bare SQL or the UNANSWERABLE refusal marker; the
// validation prompt must elicit a single-word verdict.

const unanswerableMarker = "UNANSWERABLE"

const defaultUnanswerableReason = "The requested data is not available in the database."

const unanswerableTopicHint = "The database contains information about: sales, products, stores, " +
	"inventory, forecasts, promotions, and pricing. Please try asking about one of these topics."

const generationSystemPrompt = `You are an expert SQL query generator for PostgreSQL.
You will be given a natural language question and database metadata
(tables, columns, data types, relationships).

Generate a single valid SQL query that answers the question.

Schema compliance:
- Only use tables and columns explicitly defined in the provided metadata.
- If the question asks about data that does not exist in the schema, respond with exactly:
  UNANSWERABLE: [brief explanation of what data is missing]
- Never invent or assume tables or columns that are not in the metadata.

Rules:
- Fully qualify table names with the schema given in the metadata.
- Infer joins strictly from the provided relationships.
- Do not include explanations, comments, markdown, or extra text.
- Output only executable SQL (or the UNANSWERABLE message).
- Use PostgreSQL syntax.`

const validationSystemPrompt = `You are an expert SQL validator. Validate SQL queries against a database schema.

Check syntax correctness, schema compliance, column existence, join
correctness, and data type compatibility.

Respond with ONLY a single word: "VALID" if the query is valid, or "INVALID" if it has any issues.
Do not provide explanations.`

const summarySystemPrompt = `You are a data analyst expert. Analyze query results and generate a concise,
insightful summary in exactly 4-5 lines.

Rules:
- Write exactly 4 lines (not more, not less).
- Focus on key insights, trends, and important findings.
- Use clear, business-friendly language and be specific with numbers.
- Do not include markdown formatting or bullet points.
- Write in paragraph form, with each line being a complete sentence.`

const followupSystemPrompt = `You are an expert at analyzing database schemas and generating relevant business questions.
Based on the provided database metadata, generate natural language questions that users
might ask to analyze their business data.

Rules:
- Questions must be answerable from the tables, columns, and relationships in the metadata.
- Questions should be business-focused, clear, and specific.
- Each question goes on its own line.
- Do not include numbering, bullets, or markdown formatting.`

const (
	generationTemperature = 0.3
	validationTemperature = 0.1
	summaryTemperature    = 0.3
	followupTemperature   = 0.7
)
