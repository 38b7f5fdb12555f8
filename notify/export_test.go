package notify

import "net/smtp"

// SetSendMail swaps the SMTP transport of n.
func SetSendMail(n *EmailNotifier, send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) {
	n.send = send
}
