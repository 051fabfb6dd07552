// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Contact, Deal, Activity, EmailTemplate, User and aggregate metric structs
package models

import (
	"math"
	"time"
)

type Contact struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Company       string     `json:"company,omitempty"`
	Status        string     `json:"status"`
	Tags          []string   `json:"tags,omitempty"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Deal struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name,omitempty"`
	Title         string     `json:"title"`
	Value         float64    `json:"value"`
	Stage         string     `json:"stage"`
	ContactID     int64      `json:"contact_id"`
	Probability   float64    `json:"probability"`
	ExpectedClose *time.Time `json:"expected_close,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DisplayName returns the deal name, falling back to the title.
func (d *Deal) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Title
}

type Activity struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	ContactID   *int64    `json:"contact_id,omitempty"`
	DealID      *int64    `json:"deal_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type EmailTemplate struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// User is the signed-in user as known to the client.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type ConversionMetrics struct {
	TotalDeals     int     `json:"total_deals"`
	WonDeals       int     `json:"won_deals"`
	ConversionRate float64 `json:"conversion_rate"`
}

// NewConversionMetrics computes the won percentage rounded to one decimal.
// A zero total yields a zero rate.
func NewConversionMetrics(total, won int) ConversionMetrics {
	m := ConversionMetrics{TotalDeals: total, WonDeals: won}
	if total == 0 {
		return m
	}
	rate := float64(won) / float64(total) * 100
	m.ConversionRate = math.Round(rate*10) / 10
	return m
}

// Contact status constants.
const (
	StatusLead     = "lead"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Deal stage constants.
const (
	StageLead      = "lead"
	StageQualified = "qualified"
	StageProposal  = "proposal"
	StageWon       = "won"
	StageLost      = "lost"
)

// Activity type constants.
const (
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityNote    = "note"
	ActivityTask    = "task"
)

// Stages lists the pipeline stages in display order.
var Stages = []string{StageLead, StageQualified, StageProposal, StageWon, StageLost}

var (
	statuses      = []string{StatusLead, StatusActive, StatusInactive}
	activityTypes = []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask}
)

func IsValidStatus(s string) bool {
	return contains(statuses, s)
}

func IsValidStage(s string) bool {
	return contains(Stages, s)
}

func IsValidActivityType(s string) bool {
	return contains(activityTypes, s)
}

// IsOpen reports whether a deal stage is still in play.
func IsOpen(stage string) bool {
	return stage != StageWon && stage != StageLost
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
