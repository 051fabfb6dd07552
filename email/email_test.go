package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/crmdeck/models"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

var (
	ada  = &models.Contact{ID: 3, Name: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0100", Company: "Engines"}
	deal = &models.Deal{ID: 8, Title: "Difference Engine", Value: 5000, Stage: models.StageProposal}
)

func TestApplyTemplateBody(t *testing.T) {
	tpl := models.EmailTemplate{
		Subject: "{contact.name} / {deal.title} / {deal.value} / {user.name} / {contact.phone}",
		Body:    "Hi {contact.name} at {contact.company} ({contact.email}, {contact.phone}). {deal.title} is {deal.stage} at {deal.value}. {user.name}",
	}
	r := Apply(tpl, Data{Contact: ada, Deal: deal, User: &models.User{Name: "Grace"}})

	assert.Equal(t, "Ada Lovelace / Difference Engine / 5000 / Grace / {contact.phone}", r.Subject)
	assert.Equal(t, "Hi Ada Lovelace at Engines (ada@example.com, 555-0100). Difference Engine is proposal at 5000. Grace", r.Body)
}

func TestApplyLeavesPlaceholdersWithoutRecords(t *testing.T) {
	tpl := models.EmailTemplate{Subject: "Hello {contact.name}", Body: "{deal.title}"}
	r := Apply(tpl, Data{})
	assert.Equal(t, "Hello {contact.name}", r.Subject)
	assert.Equal(t, "{deal.title}", r.Body)
}

func TestSenderOrDefault(t *testing.T) {
	assert.Equal(t, DefaultSender, SenderOrDefault(nil).Name)
	assert.Equal(t, DefaultSender, SenderOrDefault(&models.User{}).Name)
	assert.Equal(t, "Grace", SenderOrDefault(&models.User{Name: "Grace"}).Name)
}

func TestPrefill(t *testing.T) {
	d := Prefill(ada, nil, "")
	assert.Equal(t, "ada@example.com", d.To)
	assert.Equal(t, "Follow-up: Ada Lovelace", d.Subject)
	require.NotNil(t, d.ContactID)
	assert.Equal(t, int64(3), *d.ContactID)
	assert.Nil(t, d.DealID)

	d = Prefill(nil, deal, "owner@example.com")
	assert.Equal(t, "Regarding: Difference Engine", d.Subject)
	assert.Equal(t, "owner@example.com", d.To)

	d = Prefill(ada, deal, "")
	assert.Equal(t, "Follow-up: Ada Lovelace", d.Subject)
	require.NotNil(t, d.DealID)
}

func TestUseTemplate(t *testing.T) {
	d := Prefill(ada, nil, "")
	d.UseTemplate(models.EmailTemplate{ID: 2, Subject: "Hi {contact.name}", Body: "From {user.name}"}, Data{Contact: ada, User: SenderOrDefault(nil)})
	assert.Equal(t, int64(2), d.TemplateID)
	assert.Equal(t, "Hi Ada Lovelace", d.Subject)
	assert.Equal(t, "From Sales Team", d.Body)
}

func TestDraftValidate(t *testing.T) {
	err := Draft{}.Validate()
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)

	err = Draft{To: "not-an-email", Subject: "s", Body: "b"}.Validate()
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Please enter a valid email address", verrs["to"])

	assert.NoError(t, Draft{To: "a@b.co", Subject: "s", Body: "b"}.Validate())
}

func TestSimulatedSender(t *testing.T) {
	s := NewSimulated(0, nil)
	r, err := s.Send(context.Background(), Draft{To: "a@b.co", Subject: "s", Body: "b"})
	require.NoError(t, err)
	_, err = ulid.Parse(r.MessageID)
	assert.NoError(t, err)
	assert.Len(t, s.Sent(), 1)

	_, err = s.Send(context.Background(), Draft{})
	assert.Error(t, err)
	assert.Len(t, s.Sent(), 1)
}

func TestSimulatedSenderHonorsCancel(t *testing.T) {
	s := NewSimulated(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Send(ctx, Draft{To: "a@b.co", Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGmailSender(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), r.URL.Path)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw, _ = body["raw"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-123","threadId":"t-1"}`))
	}))
	defer srv.Close()

	g, err := NewGmailWithOptions(context.Background(), "me@example.com",
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	r, err := g.Send(context.Background(), Draft{To: "ada@example.com", Subject: "Hello", Body: "Body text"})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", r.MessageID)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "To: ada@example.com\r\n")
	assert.Contains(t, string(decoded), "Subject: Hello\r\n")
	assert.True(t, strings.HasSuffix(string(decoded), "Body text"))
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}))

	tok, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOAuthConfigScopes(t *testing.T) {
	cfg := NewOAuthConfig()
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.send"}, cfg.Scopes)
	assert.True(t, strings.HasSuffix(DefaultTokenPath(), filepath.Join("crmdeck", "google-credentials.json")))
}
