package email

import (
	"fmt"
	"net/smtp"
	"os"
)

// Configured reports whether SMTP delivery is set up. When it is not, the
// server runs fine but skips billing notification emails.
func Configured() bool {
	return os.Getenv("SMTP_HOST") != "" &&
		os.Getenv("SMTP_PORT") != "" &&
		os.Getenv("SMTP_USER") != "" &&
		os.Getenv("SMTP_PASS") != ""
}

func Send(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	if smtpHost == "" || smtpPort == "" || smtpUser == "" || smtpPass == "" {
		return fmt.Errorf("SMTP configuration missing")
	}

	auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpHost)

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", smtpUser, to, subject, body))

	addr := fmt.Sprintf("%s:%s", smtpHost, smtpPort)
	return smtp.SendMail(addr, auth, smtpUser, []string{to}, msg)
}

// SendPaymentFailed tells a salon owner their latest subscription payment
// failed and points them at the billing portal on the account page.
func SendPaymentFailed(to, name, appURL string) error {
	body := fmt.Sprintf(`Hi %s,

We could not collect your latest SalonLink subscription payment.

Your account stays open while we retry, but please update your payment
method to avoid an interruption:

%s/mypage

NEED HELP?
If you have any questions, reply to this email or contact us at help@salonlink.app

Best regards,
The SalonLink Team`, name, appURL)

	return Send(to, "SalonLink: payment failed", body)
}

// SendSubscriptionCanceled confirms that a subscription has ended.
func SendSubscriptionCanceled(to, name, appURL string) error {
	body := fmt.Sprintf(`Hi %s,

Your SalonLink subscription has been canceled. Your booking page is no
longer live, but your account and settings are kept, so you can pick up
where you left off at any time:

%s/mypage

We'd love to hear what we could have done better - just reply to this
email.

Best regards,
The SalonLink Team`, name, appURL)

	return Send(to, "SalonLink: subscription canceled", body)
}
