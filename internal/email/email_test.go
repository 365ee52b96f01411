package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sesv2.SendEmailOutput)
	return out, args.Error(1)
}

func TestSESMailer_SimpleMessage(t *testing.T) {
	api := new(mockSES)
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		return *in.FromEmailAddress == "noreply@market.test" &&
			in.Destination.ToAddresses[0] == "ada@example.com" &&
			in.Content.Simple != nil &&
			*in.Content.Simple.Subject.Data == "Password Reset Link" &&
			strings.Contains(*in.Content.Simple.Body.Text.Data, "https://market.test/reset-password/MQ/tok")
	})).Return(&sesv2.SendEmailOutput{}, nil)

	m := &SESMailer{api: api, from: "noreply@market.test"}
	err := m.Send(context.Background(), PasswordReset("ada@example.com", "https://market.test/reset-password/MQ/tok"))
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestSESMailer_AttachmentUsesRawMessage(t *testing.T) {
	api := new(mockSES)
	var raw []byte
	api.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			raw = args.Get(1).(*sesv2.SendEmailInput).Content.Raw.Data
		}).
		Return(&sesv2.SendEmailOutput{}, nil)

	m := &SESMailer{api: api, from: "billing@market.test"}
	pdf := []byte("%PDF-1.4 fake")
	require.NoError(t, m.Send(context.Background(), Invoice("ada@example.com", "Ada", "INV-2025-7", pdf)))

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	to, err := msg.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "ada@example.com", to[0].Address)
	from, err := msg.Header.AddressList("From")
	require.NoError(t, err)
	assert.Equal(t, "billing@market.test", from[0].Address)
	assert.Equal(t, "Invoice INV-2025-7", msg.Header.Get("Subject"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	r := multipart.NewReader(msg.Body, params["boundary"])
	text, err := r.NextPart()
	require.NoError(t, err)
	body, _ := io.ReadAll(text)
	assert.Contains(t, string(body), "invoice INV-2025-7")

	attachment, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-7.pdf", attachment.FileName())
	contentType, _, err := mime.ParseMediaType(attachment.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	data, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, attachment))
	require.NoError(t, err)
	assert.Equal(t, pdf, data)
}

func TestSESMailer_Errors(t *testing.T) {
	api := new(mockSES)
	api.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
	m := &SESMailer{api: api, from: "x@market.test"}

	err := m.Send(context.Background(), SubscriptionRejected("ada@example.com", "Ada"))
	assert.ErrorContains(t, err, "throttled")

	err = m.Send(context.Background(), Message{Subject: "nobody"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.Send(context.Background(), AdminRegistrationNotice("admin@market.test", Registration{
		Name: "Ada Lovelace", Email: "ada@example.com", BusinessName: "Engines Ltd",
	})))
	assert.Contains(t, buf.String(), "New User Registration Pending Approval")
	assert.Contains(t, buf.String(), "admin@market.test")

	buf.Reset()
	require.NoError(t, m.Send(context.Background(), AccountApproved("ada@example.com", "Ada", "Pw-secret-123", "https://market.test/login")))
	assert.Contains(t, buf.String(), "ada@example.com")
	assert.NotContains(t, buf.String(), "Pw-secret-123")

	buf.Reset()
	require.NoError(t, m.Send(context.Background(), UserExport("admin@market.test", []byte("xlsx"), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))))
	assert.Contains(t, buf.String(), "users-20250701-0000.xlsx")

	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipients)
}

func TestBuilders(t *testing.T) {
	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	msg := SubscriptionApproved("ada@example.com", "Ada", "Standard", 30, decimal.RequireFromString("29"), end)
	assert.Equal(t, "Subscription Approved", msg.Subject)
	assert.Contains(t, msg.Text, "upgraded to Standard for 30 days at $29.00")
	assert.Contains(t, msg.Text, "2025-07-01")

	approved := AccountApproved("ada@example.com", "Ada", "Pw-123", "https://market.test/login")
	assert.Contains(t, approved.Text, "Password: Pw-123")

	export := UserExport("admin@market.test", []byte("xlsx"), end)
	require.Len(t, export.Attachments, 1)
	assert.Equal(t, "users-20250701-0000.xlsx", export.Attachments[0].Filename)
}
