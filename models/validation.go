// ABOUTME: Form validation for contacts and deals
// ABOUTME: Collects per-field messages before anything reaches a gateway
package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationErrors maps a form field to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidEmail checks the loose address shape used by the contact form.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateContact returns ValidationErrors when the contact form is not submittable.
func ValidateContact(c *Contact) error {
	errs := ValidationErrors{}
	if strings.TrimSpace(c.Name) == "" {
		errs["name"] = "Name is required"
	}
	switch {
	case strings.TrimSpace(c.Email) == "":
		errs["email"] = "Email is required"
	case !IsValidEmail(c.Email):
		errs["email"] = "Please enter a valid email address"
	}
	if strings.TrimSpace(c.Company) == "" {
		errs["company"] = "Company is required"
	}
	if c.Status != "" && !IsValidStatus(c.Status) {
		errs["status"] = fmt.Sprintf("Unknown status %q", c.Status)
	}
	return errs.orNil()
}

// ValidateDeal returns ValidationErrors when the deal form is not submittable.
func ValidateDeal(d *Deal) error {
	errs := ValidationErrors{}
	if strings.TrimSpace(d.Title) == "" {
		errs["title"] = "Title is required"
	}
	if d.Value <= 0 {
		errs["value"] = "Value must be a positive number"
	}
	if d.ContactID == 0 {
		errs["contact_id"] = "Contact is required"
	}
	if d.Probability < 0 || d.Probability > 100 {
		errs["probability"] = "Probability must be between 0 and 100"
	}
	if d.Stage != "" && !IsValidStage(d.Stage) {
		errs["stage"] = fmt.Sprintf("Unknown stage %q", d.Stage)
	}
	return errs.orNil()
}

// ValidateActivity checks the activity form.
func ValidateActivity(a *Activity) error {
	errs := ValidationErrors{}
	if !IsValidActivityType(a.Type) {
		errs["type"] = fmt.Sprintf("Unknown activity type %q", a.Type)
	}
	if strings.TrimSpace(a.Description) == "" {
		errs["description"] = "Description is required"
	}
	return errs.orNil()
}
