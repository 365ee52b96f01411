package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Registration describes a new sign-up for the admin notice.
type Registration struct {
	Name         string
	Email        string
	Phone        string
	Location     string
	BusinessName string
}

func AdminRegistrationNotice(adminEmail string, r Registration) Message {
	var b strings.Builder
	b.WriteString("A new user has registered and requires admin approval.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", r.Name)
	fmt.Fprintf(&b, "Email: %s\n", r.Email)
	fmt.Fprintf(&b, "Phone: %s\n", r.Phone)
	fmt.Fprintf(&b, "Address: %s\n", r.Location)
	if r.BusinessName != "" {
		fmt.Fprintf(&b, "Business: %s\n", r.BusinessName)
	}
	b.WriteString("\nYou can activate the account in the admin panel.")

	return Message{
		To:      []string{adminEmail},
		Subject: "New User Registration Pending Approval",
		Text:    b.String(),
	}
}

func AccountApproved(to, firstName, password, loginURL string) Message {
	text := fmt.Sprintf(`Dear %s,

Your account has been approved by the admin.

You can now log in with the following details:

Email: %s
Password: %s

Log in at: %s

Please change your password after logging in.

Thank you!`, firstName, to, password, loginURL)

	return Message{To: []string{to}, Subject: "Your Account is Approved!", Text: text}
}

func PasswordReset(to, link string) Message {
	return Message{
		To:      []string{to},
		Subject: "Password Reset Link",
		Text:    fmt.Sprintf("Click the link below to reset your password:\n%s\n\nThe link is valid for 3 days and can be used once.", link),
	}
}

func SubscriptionApproved(to, name, planName string, days int, price decimal.Decimal, endDate time.Time) Message {
	text := fmt.Sprintf(`Dear %s,

Your subscription has been upgraded to %s for %d days at $%s.
It is valid until %s.

Best Regards,
Support Team`, name, planName, days, price.StringFixed(2), endDate.Format("2006-01-02"))

	return Message{To: []string{to}, Subject: "Subscription Approved", Text: text}
}

func SubscriptionRejected(to, name string) Message {
	text := fmt.Sprintf(`Dear %s,

Your subscription upgrade request was rejected.

Best Regards,
Support Team`, name)

	return Message{To: []string{to}, Subject: "Subscription Upgrade Rejected", Text: text}
}

func Invoice(to, name, number string, pdf []byte) Message {
	text := fmt.Sprintf(`Dear %s,

Please find attached invoice %s for your subscription.

Best Regards,
Support Team`, name, number)

	return Message{
		To:      []string{to},
		Subject: "Invoice " + number,
		Text:    text,
		Attachments: []Attachment{{
			Filename:    number + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
}

func UserExport(to string, xlsx []byte, at time.Time) Message {
	return Message{
		To:      []string{to},
		Subject: "User export " + at.Format("2006-01-02"),
		Text:    "The requested user export is attached.",
		Attachments: []Attachment{{
			Filename:    "users-" + at.Format("20060102-1504") + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        xlsx,
		}},
	}
}
