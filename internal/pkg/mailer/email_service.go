package mailer

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendRoomInvitation(toEmail, userName, roomName string) error
}

// dialer is the part of *gomail.Dialer the service uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      dialer
	senderEmail string
	senderName  string
	appURL      string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName, appURL string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		senderName:  senderName,
		appURL:      appURL,
	}
}

func (s *emailService) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	if s.senderName != "" {
		m.SetAddressHeader("From", s.senderEmail, s.senderName)
	} else {
		m.SetHeader("From", s.senderEmail)
	}
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) SendRoomInvitation(toEmail, userName, roomName string) error {
	if toEmail == "" {
		return fmt.Errorf("missing recipient address")
	}

	body := roomInvitationBody(userName, roomName, s.appURL)
	m := s.newMessage(toEmail, fmt.Sprintf("You were added to %s", roomName), body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send room invitation to %s: %w", toEmail, err)
	}
	return nil
}

func roomInvitationBody(userName, roomName, appURL string) string {
	greeting := "Hi"
	if userName != "" {
		greeting = "Hi " + html.EscapeString(userName)
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s,</h2>
			<p>You have been added to the chat room <strong>%s</strong>.</p>
			<p>Open the campus app to catch up on the conversation:</p>
			<p><a href="%s">%s</a></p>
		</div>
	`, greeting, html.EscapeString(roomName), appURL, appURL)
}
