// ABOUTME: Sample CRM dataset for the mock backend and database seeding
// ABOUTME: Timestamps are relative to the supplied clock so recency buckets stay meaningful
package gateway

import (
	"time"

	"github.com/harperreed/crmdeck/models"
)

// Dataset is a full set of records across every collection.
type Dataset struct {
	Contacts   []models.Contact
	Deals      []models.Deal
	Activities []models.Activity
	Templates  []models.EmailTemplate
}

func Fixtures(now time.Time) Dataset {
	day := 24 * time.Hour
	ago := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}
	ref := func(id int64) *int64 { return &id }

	contacts := []models.Contact{
		{ID: 1, Name: "Sarah Johnson", Email: "sarah.johnson@techcorp.com", Phone: "+1 (555) 123-4567", Company: "TechCorp Solutions", Status: models.StatusActive, Tags: []string{"enterprise", "decision-maker"}, LastContacted: ago(2 * time.Hour), CreatedAt: now.Add(-90 * day)},
		{ID: 2, Name: "Michael Chen", Email: "m.chen@innovate.io", Phone: "+1 (555) 234-5678", Company: "Innovate.io", Status: models.StatusLead, Tags: []string{"startup"}, LastContacted: ago(3 * day), CreatedAt: now.Add(-40 * day)},
		{ID: 3, Name: "Emily Rodriguez", Email: "emily.r@globalretail.com", Phone: "+1 (555) 345-6789", Company: "Global Retail Inc", Status: models.StatusActive, Tags: []string{"retail", "renewal"}, LastContacted: ago(12 * day), CreatedAt: now.Add(-200 * day)},
		{ID: 4, Name: "David Park", Email: "dpark@fintechplus.com", Phone: "+1 (555) 456-7890", Company: "FinTech Plus", Status: models.StatusInactive, Tags: []string{"finance"}, LastContacted: ago(45 * day), CreatedAt: now.Add(-300 * day)},
		{ID: 5, Name: "Lisa Thompson", Email: "lisa@healthfirst.org", Phone: "+1 (555) 567-8901", Company: "HealthFirst", Status: models.StatusLead, Tags: []string{"healthcare", "inbound"}, CreatedAt: now.Add(-5 * day)},
		{ID: 6, Name: "James Wilson", Email: "jwilson@buildright.com", Phone: "+1 (555) 678-9012", Company: "BuildRight Construction", Status: models.StatusActive, Tags: []string{"construction"}, LastContacted: ago(20 * day), CreatedAt: now.Add(-150 * day)},
	}
	for i := range contacts {
		contacts[i].UpdatedAt = contacts[i].CreatedAt
	}

	deals := []models.Deal{
		{ID: 1, Title: "Enterprise Software License", Value: 75000, Stage: models.StageProposal, ContactID: 1, Probability: 60, ExpectedClose: ago(-30 * day), CreatedAt: now.Add(-20 * day)},
		{ID: 2, Title: "Startup Growth Package", Value: 15000, Stage: models.StageQualified, ContactID: 2, Probability: 40, ExpectedClose: ago(-45 * day), CreatedAt: now.Add(-10 * day)},
		{ID: 3, Title: "Retail POS Integration", Value: 42000, Stage: models.StageWon, ContactID: 3, Probability: 100, CreatedAt: now.Add(-60 * day)},
		{ID: 4, Title: "Compliance Audit Tooling", Value: 28000, Stage: models.StageLost, ContactID: 4, Probability: 0, CreatedAt: now.Add(-90 * day)},
		{ID: 5, Title: "Patient Portal Pilot", Value: 9500, Stage: models.StageLead, ContactID: 5, Probability: 20, ExpectedClose: ago(-60 * day), CreatedAt: now.Add(-3 * day)},
		{ID: 6, Title: "Site Management Suite", Value: 31000, Stage: models.StageWon, ContactID: 6, Probability: 100, CreatedAt: now.Add(-40 * day)},
	}
	for i := range deals {
		deals[i].Name = deals[i].Title
		deals[i].UpdatedAt = deals[i].CreatedAt
	}

	activities := []models.Activity{
		{ID: 1, Type: models.ActivityCall, Description: "Discovery call about licensing tiers", Timestamp: now.Add(-2 * time.Hour), ContactID: ref(1), DealID: ref(1)},
		{ID: 2, Type: models.ActivityEmail, Description: "Sent growth package pricing", Timestamp: now.Add(-3 * day), ContactID: ref(2), DealID: ref(2)},
		{ID: 3, Type: models.ActivityMeeting, Description: "Quarterly business review", Timestamp: now.Add(-12 * day), ContactID: ref(3)},
		{ID: 4, Type: models.ActivityNote, Description: "Budget frozen until next fiscal year", Timestamp: now.Add(-45 * day), ContactID: ref(4), DealID: ref(4)},
		{ID: 5, Type: models.ActivityTask, Description: "Prepare pilot scope document", Timestamp: now.Add(-1 * day), ContactID: ref(5), DealID: ref(5)},
		{ID: 6, Type: models.ActivityCall, Description: "Contract signed, kickoff scheduled", Timestamp: now.Add(-20 * day), ContactID: ref(6), DealID: ref(6)},
	}
	for i := range activities {
		activities[i].CreatedAt = activities[i].Timestamp
	}

	templates := []models.EmailTemplate{
		{ID: 1, Name: "Follow-up", Category: "follow-up", Description: "Check in after a conversation",
			Subject: "Following up, {contact.name}",
			Body:    "Hi {contact.name},\n\nThanks for your time recently. I wanted to follow up on our conversation about {contact.company}.\n\nBest regards,\n{user.name}"},
		{ID: 2, Name: "Proposal", Category: "sales", Description: "Send a proposal for a deal",
			Subject: "Proposal: {deal.title}",
			Body:    "Hi {contact.name},\n\nPlease find our proposal for {deal.title} valued at {deal.value}. The deal is currently at the {deal.stage} stage.\n\nBest regards,\n{user.name}"},
		{ID: 3, Name: "Introduction", Category: "outreach", Description: "First contact",
			Subject: "Introduction from {user.name}",
			Body:    "Hello {contact.name},\n\nI'd love to learn more about what {contact.company} is working on. You can reach me by reply or at your convenience.\n\n{user.name}"},
	}

	return Dataset{Contacts: contacts, Deals: deals, Activities: activities, Templates: templates}
}
