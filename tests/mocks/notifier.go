package mocks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
)

// MailSender records messages instead of delivering them. It satisfies both
// the Notifier used by the request handler and the MailSender used by the
// mail event handler.
type MailSender struct {
	mu    sync.Mutex
	sent  []mail.Message
	err   error
	calls int
}

func NewMailSender() *MailSender {
	return &MailSender{
		sent: make([]mail.Message, 0),
	}
}

func (m *MailSender) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MailSender) SendMail(ctx context.Context, msg mail.Message) error {
	return m.Send(ctx, msg)
}

func (m *MailSender) SetError(err error) *MailSender {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MailSender) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MailSender) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message{}, m.sent...)
}

func (m *MailSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = make([]mail.Message, 0)
	m.calls = 0
	m.err = nil
}

func (m *MailSender) AssertNothingSent(t *testing.T) *MailSender {
	t.Helper()
	assert.Empty(t, m.Sent(), "expected no mail to be sent")
	return m
}

// RequireLastSent fails the test when nothing was sent and returns the most
// recent message otherwise.
func (m *MailSender) RequireLastSent(t *testing.T) mail.Message {
	t.Helper()
	sent := m.Sent()
	require.NotEmpty(t, sent, "expected at least one mail to be sent")
	return sent[len(sent)-1]
}

func (m *MailSender) AssertSentTo(t *testing.T, to, subject string) *MailSender {
	t.Helper()
	for _, msg := range m.Sent() {
		if msg.To == to && msg.Subject == subject {
			return m
		}
	}
	t.Errorf("expected mail to %s with subject %q, none found", to, subject)
	return m
}
