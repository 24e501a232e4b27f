package agent

// DecisionPrompt instructs the model to answer with a routing decision only.
// It is also the default system prompt of a conversation store.
const DecisionPrompt = "You are a highly intelligent coding assistant. You have access to the following functions:\n" +
	"1. read_file(file_name: str, question: str) → Reads the contents of a file and answers questions about it.\n" +
	"2. generate_action(question: str) → Answers general programming or technical questions.\n\n" +
	"Instructions:\n" +
	"- The user will ask questions in natural language.\n" +
	"- Decide autonomously which function to call based on the user's request.\n" +
	"- Always return a **valid JSON object only** with the following keys:\n" +
	"    - action: either 'read_file' or 'generate_action'\n" +
	"    - file: the filename to read (include only if action is 'read_file')\n" +
	"    - question: the question to answer or context for the action\n\n" +
	"Important:\n" +
	"- Do NOT include any Markdown, code blocks, or extra text outside the JSON.\n" +
	"- Example output for reading a file:\n" +
	`{ "action": "read_file", "file": "cli.py", "question": "Explain the driver() function." }` + "\n" +
	"- Example output for a general question:\n" +
	`{ "action": "generate_action", "question": "What is blockchain?" }`

// FileAnalysisPrompt is the system prompt of a file analysis request.
const FileAnalysisPrompt = "You are a helpful assistant that analyzes source code files. " +
	"Provide explanations, highlight potential issues, and suggest improvements if necessary."

// ContextPrompt is the system prompt of the natural-language answer pass.
const ContextPrompt = "You are Friday, a helpful AI assistant. Provide clear, concise, and helpful responses."

// Replies recorded in place of an answer when a turn cannot be completed.
const (
	ParseFailureMessage = "Sorry, I couldn't understand how to handle that request. Could you rephrase it?"
	MissingFileMessage  = "Which file should I read? Please name it."
)

// Metadata error codes for absorbed failures.
const (
	ErrCodeParseFailure  = "parse_failure"
	ErrCodeMissingFile   = "missing_file"
	ErrCodeReadFailure   = "read_failure"
	ErrCodeUnknownAction = "unknown_action"
)

func fileAnalysisRequest(content, question string) string {
	return "Here is a file:\n\n" + content + "\n\nQuestion: " + question
}
