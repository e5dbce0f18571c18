package domain

// Update is one inbound chat event: either a text message or an inline button press.
type Update struct {
	ChatUserID string `json:"userId" validate:"required"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	Text       string `json:"text"`
	Callback   string `json:"callback"`
}

type InlineButton struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

type Document struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// Outbound is a display instruction for the chat transport. Keyboard replaces the reply
// keyboard, Inline attaches buttons to this message, Edit asks the transport to rewrite the
// message the inline button belonged to instead of sending a new one.
type Outbound struct {
	Text     string           `json:"text"`
	Keyboard [][]string       `json:"keyboard,omitempty"`
	Inline   [][]InlineButton `json:"inline,omitempty"`
	Document *Document        `json:"document,omitempty"`
	Edit     bool             `json:"edit,omitempty"`
}
