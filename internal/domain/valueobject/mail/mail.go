package mail

import "strings"

// Message is a single outbound email with a plain text and an html alternative.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

func (m Message) IsZero() bool {
	return m == Message{}
}

// HasBody reports whether at least one of the bodies carries content.
func (m Message) HasBody() bool {
	return strings.TrimSpace(m.Text) != "" || strings.TrimSpace(m.HTML) != ""
}
