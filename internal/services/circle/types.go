package circle

import (
	"bytes"
	"encoding/json"
)

// The sync webhook delivers messages in one of two shapes. The current n8n
// workflow sends the unified shape: a Type tag, a Parent_Message object and
// optional Replies, plus Issue_Details produced by the triage step. Older
// workflows (and the mock servers) send flat legacy objects that have to be
// transformed into the unified shape before processing.

// Shape tags the detected payload shape of one inbound message.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeUnified
	ShapeLegacy
)

// DetectShape classifies a raw message object. Unified payloads carry a
// Parent_Message object; anything with recognizable flat message fields is
// legacy; everything else is unknown and rejected by Normalize.
func DetectShape(raw json.RawMessage) Shape {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ShapeUnknown
	}
	if _, ok := probe["Parent_Message"]; ok {
		return ShapeUnified
	}
	for _, key := range []string{"message_id", "chat_thread_id", "thread_id", "id", "body", "content", "text"} {
		if _, ok := probe[key]; ok {
			return ShapeLegacy
		}
	}
	return ShapeUnknown
}

// FlexID decodes a source-system id that may arrive as a JSON number or a
// string ("msg_abc123"). Stored canonically as a string.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// FlexSender decodes a sender that may be a plain name string or an object
// with name/email fields.
type FlexSender struct {
	Name  string
	Email string
}

func (s *FlexSender) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = FlexSender{}
		return nil
	}
	if b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*s = FlexSender{Name: name}
		return nil
	}
	var obj struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = FlexSender{Name: obj.Name, Email: obj.Email}
	return nil
}

func (s FlexSender) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Name)
}

// UnifiedMessage is the canonical wire shape.
type UnifiedMessage struct {
	Type          string        `json:"Type"` // "thread" or "single"
	ParentMessage ParentMessage `json:"Parent_Message"`
	Replies       []Reply       `json:"Replies,omitempty"`
	IssueDetails  IssueDetails  `json:"Issue_Details"`
}

// ParentMessage holds the root message of a thread, or the message itself
// for singles.
type ParentMessage struct {
	MessageID    FlexID            `json:"message_id"`
	ChatThreadID FlexID            `json:"chat_thread_id"`
	ParentID     FlexID            `json:"parent_id"`
	ChatRoomUUID string            `json:"chat_room_uuid"`
	SpaceID      string            `json:"space_id"`
	SpaceName    string            `json:"space_name"`
	Sender       FlexSender        `json:"sender"`
	ParentSender FlexSender        `json:"parent_sender"`
	CreatedAt    string            `json:"created_at"`
	EditedAt     *string           `json:"edited_at"`
	Body         string            `json:"body"`
	Attachments  []json.RawMessage `json:"attachments,omitempty"`
	MessageURL   string            `json:"message_url"`
	HasReplies   bool              `json:"has_replies"`
	RepliesCount int               `json:"replies_count"`
}

// Reply is one thread reply. ReplyIndex is 1-based in delivery order.
type Reply struct {
	ReplyIndex int        `json:"reply_index"`
	MessageID  FlexID     `json:"message_id"`
	Sender     FlexSender `json:"sender"`
	Body       string     `json:"body"`
	CreatedAt  string     `json:"created_at"`
}

// Key identifies a reply for de-duplication: the source message id when
// present, otherwise sender, timestamp and body together.
func (r Reply) Key() string {
	if r.MessageID != "" {
		return "id:" + r.MessageID.String()
	}
	return "synth:" + r.Sender.Name + "|" + r.CreatedAt + "|" + r.Body
}

// IssueDetails is the triage verdict attached by the workflow.
type IssueDetails struct {
	IsIssue    bool   `json:"is_issue"`
	IssueTitle string `json:"issue_title"`
	Type       string `json:"type"`
	Reasoning  string `json:"reasoning"`
}

// legacyMessage collects every flat field name observed across the older
// payload variants. Aliases for the same concept (body/content/text,
// link/message_url, id nested under message.content) are resolved during
// transformation.
type legacyMessage struct {
	ID           FlexID            `json:"id"`
	MessageID    FlexID            `json:"message_id"`
	ChatThreadID FlexID            `json:"chat_thread_id"`
	ThreadID     FlexID            `json:"thread_id"`
	ParentID     FlexID            `json:"parent_id"`
	ChatRoomUUID string            `json:"chat_room_uuid"`
	SpaceID      string            `json:"space_id"`
	SpaceName    string            `json:"space_name"`
	Body         string            `json:"body"`
	Content      string            `json:"content"`
	Text         string            `json:"text"`
	ParentBody   *string           `json:"parent_body"`
	Sender       FlexSender        `json:"sender"`
	AuthorName   string            `json:"author_name"`
	ParentSender FlexSender        `json:"parent_sender"`
	Link         string            `json:"link"`
	MessageURL   string            `json:"message_url"`
	CreatedAt    string            `json:"created_at"`
	EditedAt     *string           `json:"edited_at"`
	Attachments  []json.RawMessage `json:"attachments"`
	Replies      []legacyReply     `json:"replies"`
	IsIssue      *bool             `json:"is_issue"`
	IssueTitle   string            `json:"issue_title"`
	Message      *struct {
		Content struct {
			MessageID  FlexID `json:"message_id"`
			IssueTitle string `json:"issue_title"`
			IsIssue    bool   `json:"is_issue"`
		} `json:"content"`
	} `json:"message"`
}

type legacyReply struct {
	ID         FlexID     `json:"id"`
	MessageID  FlexID     `json:"message_id"`
	Sender     FlexSender `json:"sender"`
	AuthorName string     `json:"author_name"`
	Body       string     `json:"body"`
	Content    string     `json:"content"`
	Text       string     `json:"text"`
	CreatedAt  string     `json:"created_at"`
}
