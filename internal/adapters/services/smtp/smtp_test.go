package smtp

import (
	"bufio"
	"io"
	"mime"
	"mime/multipart"
	"net"
	netmail "net/mail"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
)

var msg = mail.Message{
	To:      "user@example.com",
	From:    "noreply@acme.test",
	Subject: "Authorization Code from Acme Ünited",
	Text:    "Here is your Authorization Code 123456 from Acme.",
	HTML:    "<div>Authorization Code <strong>123456</strong> from Acme.</div>",
}

// fakeServer speaks just enough SMTP for net/smtp without STARTTLS or AUTH.
type fakeServer struct {
	ln       net.Listener
	mu       sync.Mutex
	from     string
	rcpt     []string
	data     string
	rejectTo bool
}

func newFakeServer(t *testing.T, rejectTo bool) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln, rejectTo: rejectTo}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeServer) port(t *testing.T) int {
	t.Helper()
	_, p, err := net.SplitHostPort(s.ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return port
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = io.WriteString(conn, line+"\r\n") }

	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(cmd)

		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			reply("250 fake")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.from = cmd[len("MAIL FROM:"):]
			s.mu.Unlock()
			reply("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			if s.rejectTo {
				reply("550 no such user")
				continue
			}
			s.mu.Lock()
			s.rcpt = append(s.rcpt, cmd[len("RCPT TO:"):])
			s.mu.Unlock()
			reply("250 OK")
		case upper == "DATA":
			reply("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.mu.Lock()
			s.data = b.String()
			s.mu.Unlock()
			reply("250 queued")
		case upper == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func (s *fakeServer) snapshot() (string, []string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.from, append([]string(nil), s.rcpt...), s.data
}

func TestSender_SendMail(t *testing.T) {
	srv := newFakeServer(t, false)
	sender := NewSender(Args{Host: "127.0.0.1", Port: srv.port(t)})

	require.NoError(t, sender.SendMail(t.Context(), msg))

	from, rcpt, data := srv.snapshot()
	assert.Equal(t, "<noreply@acme.test>", from)
	assert.Equal(t, []string{"<user@example.com>"}, rcpt)

	parsed, err := netmail.ReadMessage(strings.NewReader(data))
	require.NoError(t, err)
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)
}

func TestSender_Send(t *testing.T) {
	srv := newFakeServer(t, false)
	sender := NewSender(Args{Host: "127.0.0.1", Port: srv.port(t)})

	require.NoError(t, sender.Send(t.Context(), msg))
	_, rcpt, _ := srv.snapshot()
	assert.Len(t, rcpt, 1)
}

func TestSender_RecipientRejected(t *testing.T) {
	srv := newFakeServer(t, true)
	sender := NewSender(Args{Host: "127.0.0.1", Port: srv.port(t)})

	err := sender.SendMail(t.Context(), msg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "rcpt to")
}

func TestSender_InvalidAddresses(t *testing.T) {
	sender := NewSender(Args{Host: "127.0.0.1", Port: 1})

	bad := msg
	bad.From = "not an address"
	assert.ErrorContains(t, sender.SendMail(t.Context(), bad), "from address")

	bad = msg
	bad.To = ""
	assert.ErrorContains(t, sender.SendMail(t.Context(), bad), "to address")
}

func TestSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	sender := NewSender(Args{Host: "127.0.0.1", Port: port, DialTimeout: time.Second})
	assert.ErrorContains(t, sender.SendMail(t.Context(), msg), "dial smtp server")
}

func TestBuildMessage(t *testing.T) {
	from, _ := netmail.ParseAddress(msg.From)
	to, _ := netmail.ParseAddress(msg.To)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	raw, err := buildMessage(from, to, msg, now)
	require.NoError(t, err)

	parsed, err := netmail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "<noreply@acme.test>", parsed.Header.Get("From"))
	assert.Equal(t, "<user@example.com>", parsed.Header.Get("To"))
	assert.Equal(t, "1.0", parsed.Header.Get("MIME-Version"))
	date, err := parsed.Header.Date()
	require.NoError(t, err)
	assert.True(t, now.Equal(date))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	bodies := map[string]string{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ct, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		require.NoError(t, err)
		b, err := io.ReadAll(part)
		require.NoError(t, err)
		bodies[ct] = string(b)
	}

	assert.Equal(t, msg.Text, bodies["text/plain"])
	assert.Equal(t, msg.HTML, bodies["text/html"])
}

func TestBuildMessage_TextOnly(t *testing.T) {
	from, _ := netmail.ParseAddress(msg.From)
	to, _ := netmail.ParseAddress(msg.To)
	m := msg
	m.HTML = ""

	raw, err := buildMessage(from, to, m, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "text/html")
}

func TestBuildMessage_NoBody(t *testing.T) {
	from, _ := netmail.ParseAddress(msg.From)
	to, _ := netmail.ParseAddress(msg.To)
	m := msg
	m.Text, m.HTML = " ", ""

	_, err := buildMessage(from, to, m, time.Now())
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestNewSender_Panics(t *testing.T) {
	assert.Panics(t, func() { NewSender(Args{}) })
}
