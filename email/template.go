// ABOUTME: Placeholder substitution for email templates
// ABOUTME: Replaces {contact.*}, {deal.*} and {user.name} tokens from the supplied records
package email

import (
	"strconv"
	"strings"

	"github.com/harperreed/crmdeck/models"
)

// DefaultSender is the signature used when no current user is known.
const DefaultSender = "Sales Team"

// Data is the record context a template is rendered against. A nil record
// leaves its placeholders untouched.
type Data struct {
	Contact *models.Contact
	Deal    *models.Deal
	User    *models.User
}

// Rendered is a template after substitution.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Apply substitutes placeholders in the template subject and body. The
// subject supports a narrower set than the body: no phone or stage.
func Apply(tpl models.EmailTemplate, data Data) Rendered {
	var subject, body []string

	if c := data.Contact; c != nil {
		subject = append(subject,
			"{contact.name}", c.Name,
			"{contact.email}", c.Email,
			"{contact.company}", c.Company)
		body = append(body,
			"{contact.name}", c.Name,
			"{contact.email}", c.Email,
			"{contact.phone}", c.Phone,
			"{contact.company}", c.Company)
	}
	if d := data.Deal; d != nil {
		value := formatValue(d.Value)
		subject = append(subject,
			"{deal.title}", d.Title,
			"{deal.value}", value)
		body = append(body,
			"{deal.title}", d.Title,
			"{deal.value}", value,
			"{deal.stage}", d.Stage)
	}
	if u := data.User; u != nil {
		subject = append(subject, "{user.name}", u.Name)
		body = append(body, "{user.name}", u.Name)
	}

	return Rendered{
		Subject: replace(tpl.Subject, subject),
		Body:    replace(tpl.Body, body),
	}
}

func replace(s string, pairs []string) string {
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func formatValue(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SenderOrDefault returns u, or a user named DefaultSender when u is nil.
func SenderOrDefault(u *models.User) *models.User {
	if u != nil && u.Name != "" {
		return u
	}
	return &models.User{Name: DefaultSender}
}
