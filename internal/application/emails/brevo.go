package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender sends seller-facing transactional emails. Nil = no-op.
type Sender interface {
	SendPurchaseNotice(ctx context.Context, toEmail string, n PurchaseNotice) error
	SendExpiryAlert(ctx context.Context, toEmail string, a ExpiryAlert) error
}

// PurchaseNotice is what a seller is told after a buyer takes units of their listing.
type PurchaseNotice struct {
	ListingTitle string
	Quantity     int
	Remaining    int
}

// ExpiryAlert is what a seller is told when a listing with stock is about to expire.
type ExpiryAlert struct {
	ListingTitle string
	ExpiresOn    time.Time
	Quantity     int
}

// BrevoClient sends emails via Brevo (Sendinblue) API. Empty APIKey = no-op.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string // defaults to Brevo v3 SMTP endpoint
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@savemyfoods.app"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" || toEmail == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "SaveMyFoods"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@savemyfoods.app", Name: "SaveMyFoods Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendPurchaseNotice tells the seller how many units were bought and how many are left.
func (c *BrevoClient) SendPurchaseNotice(ctx context.Context, toEmail string, n PurchaseNotice) error {
	subject := fmt.Sprintf("Someone just saved %d × %s", n.Quantity, n.ListingTitle)
	return c.send(ctx, toEmail, subject, EmailLayout(purchaseContent(n)))
}

// SendExpiryAlert reminds the seller that a listing with stock expires soon.
func (c *BrevoClient) SendExpiryAlert(ctx context.Context, toEmail string, a ExpiryAlert) error {
	subject := fmt.Sprintf("%s expires on %s", a.ListingTitle, a.ExpiresOn.Format("2 Jan"))
	return c.send(ctx, toEmail, subject, EmailLayout(expiryContent(a)))
}

func purchaseContent(n PurchaseNotice) string {
	left := fmt.Sprintf("You have <strong>%d</strong> left.", n.Remaining)
	if n.Remaining == 0 {
		left = "That was the last of it, the listing is now sold out."
	}
	return fmt.Sprintf(`
    <h1>%d × %s sold</h1>
    <p>A buyer just reserved <strong>%d</strong> of your listing <strong>%s</strong>. %s</p>
    <p>Thanks for keeping good food out of the bin.</p>
`, n.Quantity, EscapeHTML(n.ListingTitle), n.Quantity, EscapeHTML(n.ListingTitle), left)
}

func expiryContent(a ExpiryAlert) string {
	return fmt.Sprintf(`
    <h1>%s is expiring soon</h1>
    <p>Your listing <strong>%s</strong> still has <strong>%d</strong> left and expires on <strong>%s</strong>.</p>
    <p>Consider lowering the price or sharing it locally so it finds a home in time.</p>
`, EscapeHTML(a.ListingTitle), EscapeHTML(a.ListingTitle), a.Quantity, a.ExpiresOn.Format("Monday 2 January 2006"))
}
