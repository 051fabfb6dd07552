// ABOUTME: Gmail API sender for composed drafts
// ABOUTME: Builds an RFC 822 message and posts it through users.messages.send
package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail sends mail as the authenticated account.
type Gmail struct {
	service *gmail.Service
	from    string
}

// NewGmail builds a sender from a stored OAuth token.
func NewGmail(ctx context.Context, token *oauth2.Token, from string) (*Gmail, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	client := NewOAuthConfig().Client(ctx, token)
	return NewGmailWithOptions(ctx, from, option.WithHTTPClient(client))
}

// NewGmailWithOptions builds a sender with explicit client options.
func NewGmailWithOptions(ctx context.Context, from string, opts ...option.ClientOption) (*Gmail, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Gmail{service: service, from: from}, nil
}

func (g *Gmail) Send(ctx context.Context, d Draft) (Receipt, error) {
	if err := d.Validate(); err != nil {
		return Receipt{}, err
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(rfc822(g.from, d))}
	sent, err := g.service.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return Receipt{}, fmt.Errorf("gmail send: %w", err)
	}
	return Receipt{MessageID: sent.Id, To: d.To, SentAt: time.Now()}, nil
}

func rfc822(from string, d Draft) []byte {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", d.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", d.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(d.Body)
	return []byte(b.String())
}
