package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

var rewardTemplate = template.Must(template.New("reward").Parse(`<html>
	<body style="font-family:sans-serif;line-height:1.6;background:#f6fff8;padding:20px;">
		<h2 style="color:#228b22;">Congratulations{{if .Name}}, {{.Name}}{{end}}!</h2>
		<p>You have successfully completed the following pledge:</p>
		<blockquote style="font-style:italic;color:#2e8b57;">{{.PledgeText}}</blockquote>
		<p>You earned <b>{{.Points}}</b> points and unlocked the reward: <b>{{.Gift}}</b>.</p>
		<p style="color:#555;">Keep going, every step counts towards a greener planet!</p>
		<hr/>
		<small>The ESG Pledge Team</small>
	</body>
</html>`))

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailSink sends the reward email over SMTP.
type EmailSink struct {
	host string
	addr string
	auth smtp.Auth
	from string
	send func(ctx context.Context, to string, msg []byte) error
}

func NewEmailSink(cfg EmailConfig) *EmailSink {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	s := &EmailSink{
		host: cfg.Host,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth: auth,
		from: cfg.From,
	}
	s.send = s.sendMail
	return s
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, ev RewardEarned) error {
	if ev.Email == "" {
		return nil
	}
	msg, err := s.render(ev)
	if err != nil {
		return err
	}
	if err := s.send(ctx, ev.Email, msg); err != nil {
		return fmt.Errorf("send reward email to %s: %w", ev.Email, err)
	}
	return nil
}

func (s *EmailSink) render(ev RewardEarned) ([]byte, error) {
	var body bytes.Buffer
	if err := rewardTemplate.Execute(&body, ev); err != nil {
		return nil, fmt.Errorf("render reward email: %w", err)
	}

	headers := []string{
		"From: ESG Pledge Platform <" + s.from + ">",
		"To: " + ev.Email,
		"Subject: You completed a pledge & unlocked a reward!",
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}

	var msg bytes.Buffer
	msg.WriteString(strings.Join(headers, "\r\n"))
	msg.WriteString("\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// sendMail is smtp.SendMail bound to ctx: the dial honours cancellation and
// the connection deadline follows the context deadline.
func (s *EmailSink) sendMail(ctx context.Context, to string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(s.auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(s.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
