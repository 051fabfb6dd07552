// ABOUTME: Client-side filter and search over loaded contact and activity collections
// ABOUTME: Pure functions; contacts keep input order, activities come back newest first
package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/harperreed/crmdeck/models"
)

// Recency buckets for a contact's last-contacted timestamp.
const (
	BucketToday = "today"
	BucketWeek  = "week"
	BucketMonth = "month"
	BucketOlder = "older"
)

// Criteria selects contacts. Empty fields match everything.
type Criteria struct {
	SearchTerm    string `json:"search_term,omitempty"`
	Status        string `json:"status,omitempty"`
	LastContacted string `json:"last_contacted,omitempty"`
	// DealStage is carried for the filter bar but has no effect on results.
	DealStage string `json:"deal_stage,omitempty"`
}

// IsZero reports whether the criteria would pass every contact.
func (c Criteria) IsZero() bool {
	return c.SearchTerm == "" && c.Status == "" && c.LastContacted == ""
}

// ActivityCriteria selects activities.
type ActivityCriteria struct {
	SearchTerm string `json:"search_term,omitempty"`
	Type       string `json:"type,omitempty"`
}

// Contacts filters against the current local time.
func Contacts(all []models.Contact, c Criteria) []models.Contact {
	return ContactsAt(all, c, time.Now())
}

// ContactsAt filters with recency buckets computed relative to now.
func ContactsAt(all []models.Contact, c Criteria, now time.Time) []models.Contact {
	if c.IsZero() {
		return all
	}

	term := strings.ToLower(c.SearchTerm)
	w := newWindow(now)

	out := make([]models.Contact, 0, len(all))
	for _, contact := range all {
		if term != "" && !matchesContact(contact, term) {
			continue
		}
		if c.Status != "" && contact.Status != c.Status {
			continue
		}
		if c.LastContacted != "" && !w.contains(c.LastContacted, contact.LastContacted) {
			continue
		}
		out = append(out, contact)
	}
	return out
}

func matchesContact(c models.Contact, term string) bool {
	return strings.Contains(strings.ToLower(c.Name), term) ||
		strings.Contains(strings.ToLower(c.Email), term) ||
		strings.Contains(strings.ToLower(c.Company), term)
}

// window holds the day-aligned lower edges of the recency buckets.
type window struct {
	today    time.Time
	weekAgo  time.Time
	monthAgo time.Time
}

func newWindow(now time.Time) window {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return window{
		today:    today,
		weekAgo:  today.AddDate(0, 0, -7),
		monthAgo: today.AddDate(0, 0, -30),
	}
}

// contains reports whether at falls in bucket. A missing time belongs to
// the older bucket only, even when the bucket name is unknown.
func (w window) contains(bucket string, at *time.Time) bool {
	if at == nil {
		return bucket == BucketOlder
	}
	switch bucket {
	case BucketToday:
		return !at.Before(w.today)
	case BucketWeek:
		return !at.Before(w.weekAgo)
	case BucketMonth:
		return !at.Before(w.monthAgo)
	case BucketOlder:
		return at.Before(w.monthAgo)
	default:
		return true
	}
}

// Bucket names the narrowest bucket a timestamp falls in.
func Bucket(at *time.Time, now time.Time) string {
	w := newWindow(now)
	for _, b := range []string{BucketToday, BucketWeek, BucketMonth} {
		if w.contains(b, at) {
			return b
		}
	}
	return BucketOlder
}

// Activities returns the matching activities sorted newest first. Ties keep
// their input order. The input slice is not modified.
func Activities(all []models.Activity, c ActivityCriteria) []models.Activity {
	term := strings.ToLower(c.SearchTerm)

	out := make([]models.Activity, 0, len(all))
	for _, a := range all {
		if term != "" &&
			!strings.Contains(strings.ToLower(a.Description), term) &&
			!strings.Contains(strings.ToLower(a.Type), term) {
			continue
		}
		if c.Type != "" && a.Type != c.Type {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
