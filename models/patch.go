// ABOUTME: Field-level contact patches used by bulk edits
// ABOUTME: Validates a {field: value} map and applies it to in-memory contacts
package models

import (
	"fmt"
	"strings"
	"time"
)

// Patch is a sparse set of field updates keyed by wire field name.
type Patch map[string]any

// ContactFields lists the contact fields a patch may touch.
var ContactFields = []string{"name", "email", "phone", "company", "status", "tags", "last_contacted"}

// Validate checks field names and value types for a contact patch.
func (p Patch) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("empty patch")
	}
	var scratch Contact
	return p.ApplyToContact(&scratch)
}

// ApplyToContact writes every field of the patch onto c.
func (p Patch) ApplyToContact(c *Contact) error {
	for field, value := range p {
		switch field {
		case "name", "email", "phone", "company", "status":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("field %s: expected string, got %T", field, value)
			}
			if err := setContactString(c, field, s); err != nil {
				return err
			}
		case "tags":
			tags, err := toTags(value)
			if err != nil {
				return err
			}
			c.Tags = tags
		case "last_contacted":
			ts, err := toTime(value)
			if err != nil {
				return err
			}
			c.LastContacted = ts
		default:
			return fmt.Errorf("unknown contact field %q", field)
		}
	}
	return nil
}

func setContactString(c *Contact, field, s string) error {
	switch field {
	case "name":
		c.Name = s
	case "email":
		if s != "" && !IsValidEmail(s) {
			return fmt.Errorf("field email: invalid address %q", s)
		}
		c.Email = s
	case "phone":
		c.Phone = s
	case "company":
		c.Company = s
	case "status":
		if !IsValidStatus(s) {
			return fmt.Errorf("field status: unknown status %q", s)
		}
		c.Status = s
	}
	return nil
}

func toTags(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field tags: expected strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return SplitTags(v), nil
	default:
		return nil, fmt.Errorf("field tags: unsupported type %T", value)
	}
}

func toTime(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case *time.Time:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("field last_contacted: %w", err)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("field last_contacted: unsupported type %T", value)
	}
}

// SplitTags parses a comma separated tag list, dropping blanks.
func SplitTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
