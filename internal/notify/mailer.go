package notify

import (
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/wneessen/go-mail"
)

//go:embed templates/*
var templateFS embed.FS

var (
	approvalText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/approval.txt.tmpl"))
	approvalHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/approval.html.tmpl"))
)

const approvalSubject = "🎉 You're Approved! AAYAM 2026 Ambassador Program"

// SMTPOptions configures Mailer.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SSL selects implicit TLS; otherwise STARTTLS is mandatory.
	SSL bool
}

// Mailer sends notices through an SMTP relay.
type Mailer struct {
	client *mail.Client
	from   string
}

// NewMailer builds an SMTP client. No connection is made until the first send.
func NewMailer(opts SMTPOptions) (*Mailer, error) {
	clientOpts := []mail.Option{mail.WithPort(opts.Port)}
	if opts.SSL {
		clientOpts = append(clientOpts, mail.WithSSL())
	} else {
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
		)
	}

	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Mailer{client: client, from: opts.From}, nil
}

func (m *Mailer) NotifyApproval(ctx context.Context, n ApprovalNotice) error {
	msg, err := approvalMessage(m.from, n)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send approval e-mail: %w", err)
	}
	return nil
}

// approvalMessage renders the plain-text body with an HTML alternative.
func approvalMessage(from string, n ApprovalNotice) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(n.Email); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(approvalSubject)
	if err := msg.SetBodyTextTemplate(approvalText, n); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(approvalHTML, n); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	return msg, nil
}
