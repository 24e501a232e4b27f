package schema

import "time"

// Role identifies who authored a message.
//
// Only RoleSystem, RoleUser and RoleAssistant are produced by friday itself;
// any other value is stored verbatim.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Metadata records the effects of a routed turn on the message that carries
// its result. It serialises to the JSON blob stored in the metadata column.
type Metadata struct {
	Action string `json:"action,omitempty" bson:"action,omitempty"`
	File   string `json:"file,omitempty" bson:"file,omitempty"`
	Found  *bool  `json:"found,omitempty" bson:"found,omitempty"`
	Error  string `json:"error,omitempty" bson:"error,omitempty"`
}

// IsZero reports whether no field is set.
func (m *Metadata) IsZero() bool {
	return m == nil || (m.Action == "" && m.File == "" && m.Found == nil && m.Error == "")
}

// Clone returns an independent copy of m (nil-safe).
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Found != nil {
		f := *m.Found
		c.Found = &f
	}
	return &c
}

// Found returns a pointer to v, for building Metadata literals.
func Found(v bool) *bool { return &v }

// Message is one entry in a conversation history.
// Content has already been passed through the truncation policy.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Metadata  *Metadata
}

// NewMessage builds a message stamped with the current time.
func NewMessage(role Role, content string, meta *Metadata) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  meta.Clone(),
	}
}

// Action returns the recorded action, or "" when the message has none.
func (m Message) Action() string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata.Action
}

// Session identifies one logical conversation.
type Session struct {
	ID        int64
	UserID    string // empty when unset
	CreatedAt time.Time
}

// Limits bound the size of a conversation history.
// MaxTokensPerMessage is a content-length proxy: one token is four characters.
type Limits struct {
	MaxContextMessages  int `json:"maxContextMessages" yaml:"maxContextMessages"`
	MaxTokensPerMessage int `json:"maxTokensPerMessage" yaml:"maxTokensPerMessage"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxContextMessages: 20, MaxTokensPerMessage: 2000}
}

// NoAction is the LastAction sentinel for a history with no recorded action.
const NoAction = "none"

// Summary describes the state of a conversation.
type Summary struct {
	TotalMessages       int
	SessionDuration     time.Duration
	UniqueFilesAccessed int
	LastAction          string
}
