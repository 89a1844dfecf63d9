package verification

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPSender delivers codes over plain SMTP. Kept deliberately small:
// templating and provider APIs live outside this service.
type SMTPSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

func (s *SMTPSender) Send(ctx context.Context, email, code string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your verification code\r\n\r\nYour code is %s. It expires in 10 minutes.\r\n",
		s.From, email, code,
	)

	err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{email}, []byte(msg))
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
