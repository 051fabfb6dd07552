// ABOUTME: Tests for CRM data models
// ABOUTME: Covers conversion metrics, form validation and contact patches
package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversionMetrics(t *testing.T) {
	tests := []struct {
		name       string
		total, won int
		want       float64
	}{
		{"no deals", 0, 0, 0},
		{"all won", 4, 4, 100},
		{"one third", 3, 1, 33.3},
		{"two thirds", 3, 2, 66.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewConversionMetrics(tt.total, tt.won)
			assert.Equal(t, tt.want, m.ConversionRate)
			assert.Equal(t, tt.total, m.TotalDeals)
			assert.Equal(t, tt.won, m.WonDeals)
		})
	}
}

func TestValidateContact(t *testing.T) {
	err := ValidateContact(&Contact{Name: "Ada", Email: "ada@example.com", Company: "Engines"})
	assert.NoError(t, err)

	err = ValidateContact(&Contact{Email: "not-an-email"})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "Name is required", verrs["name"])
	assert.Equal(t, "Please enter a valid email address", verrs["email"])
	assert.Equal(t, "Company is required", verrs["company"])
}

func TestValidateDeal(t *testing.T) {
	ok := &Deal{Title: "Renewal", Value: 1200, ContactID: 3, Probability: 40, Stage: StageProposal}
	assert.NoError(t, ValidateDeal(ok))

	bad := &Deal{Value: 0, Probability: 120, Stage: "negotiation"}
	var verrs ValidationErrors
	require.True(t, errors.As(ValidateDeal(bad), &verrs))
	assert.Len(t, verrs, 5)
	assert.Equal(t, "Value must be a positive number", verrs["value"])
}

func TestPatchApplyToContact(t *testing.T) {
	c := &Contact{Name: "Grace", Status: StatusLead}

	err := Patch{"status": StatusActive, "tags": []any{"vip", "q3"}}.ApplyToContact(c)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, []string{"vip", "q3"}, c.Tags)

	err = Patch{"tags": "a, b,,c"}.ApplyToContact(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, c.Tags)

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, Patch{"last_contacted": ts.Format(time.RFC3339)}.ApplyToContact(c))
	require.NotNil(t, c.LastContacted)
	assert.True(t, ts.Equal(*c.LastContacted))
}

func TestPatchValidate(t *testing.T) {
	assert.NoError(t, Patch{"status": StatusInactive}.Validate())
	assert.Error(t, Patch{}.Validate())
	assert.Error(t, Patch{"status": "archived"}.Validate())
	assert.Error(t, Patch{"nickname": "x"}.Validate())
	assert.Error(t, Patch{"company": 42}.Validate())
}

func TestDealDisplayName(t *testing.T) {
	d := &Deal{Title: "Expansion"}
	assert.Equal(t, "Expansion", d.DisplayName())
	d.Name = "ACME expansion"
	assert.Equal(t, "ACME expansion", d.DisplayName())
}
