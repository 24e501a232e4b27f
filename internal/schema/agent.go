package schema

const (
	ActionReadFile = "read_file"
	ActionGenerate = "generate_action"
)

// Decision is the routing choice extracted from a model reply.
// It is never persisted; only its effects are, as message metadata.
type Decision struct {
	Action   string `json:"action"`
	File     string `json:"file,omitempty"`
	Question string `json:"question,omitempty"`
}
