package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/netwatch-dev/netwatch/internal/models"
	"gorm.io/gorm"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorOrange = 16753920 // #FFA500 - assignment
	ColorRed    = 16711680 // #FF0000 - critical incident

	Username = "Netwatch"
)

// Notifier delivers assignment notifications over the tenant's configured
// webhooks and records each attempt as a Notification row. The HTTP client
// carries a hard timeout; callers additionally bound the context.
type Notifier struct {
	db     *gorm.DB
	client *http.Client
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{
		db:     db,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// NotifyAssignment tells the incident's owner that the incident landed on
// them. One attempt per configured channel; the first channel error is
// returned after all channels were tried.
func (n *Notifier) NotifyAssignment(ctx context.Context, tenant models.Tenant, incident models.Incident) error {
	if incident.OwnerUserID == nil {
		return nil
	}

	var firstErr error

	if tenant.SlackWebhook != "" {
		err := n.sendSlackAssignment(ctx, tenant.SlackWebhook, tenant, incident)
		n.recordNotification(incident, "slack", err)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("slack: %w", err)
		}
	}

	if tenant.DiscordWebhook != "" {
		err := n.sendDiscordAssignment(ctx, tenant.DiscordWebhook, tenant, incident)
		n.recordNotification(incident, "discord", err)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("discord: %w", err)
		}
	}

	return firstErr
}

func (n *Notifier) sendSlackAssignment(ctx context.Context, webhookURL string, tenant models.Tenant, incident models.Incident) error {
	payload := SlackWebhookRequest{
		Username:  Username,
		IconEmoji: ":satellite_antenna:",
		Text:      ":bell: *INCIDENT ASSIGNED*",
		Attachments: []SlackAttachment{
			{
				Color: slackColor(incident.Severity),
				Title: fmt.Sprintf("Incident #%d (%s) was assigned to user %d", incident.ID, incident.IncidentType, *incident.OwnerUserID),
				Text:  incident.Message,
				Fields: []SlackField{
					{Title: "Router", Value: fmt.Sprintf("%d", incident.RouterID), Short: true},
					{Title: "Interface", Value: orDash(incident.InterfaceName), Short: true},
					{Title: "Severity", Value: incident.Severity, Short: true},
					{Title: "Status", Value: incident.Status, Short: true},
					{Title: "First Seen", Value: incident.FirstSeenAt.Format("2006-01-02 15:04:05 UTC"), Short: false},
				},
				Footer:    fmt.Sprintf("Tenant: %s", tenant.Name),
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return n.post(ctx, webhookURL, payload)
}

func (n *Notifier) sendDiscordAssignment(ctx context.Context, webhookURL string, tenant models.Tenant, incident models.Incident) error {
	color := ColorOrange
	if incident.Severity == "critical" {
		color = ColorRed
	}

	payload := DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       "🔔 **INCIDENT ASSIGNED**",
				Description: fmt.Sprintf("Incident #%d requires attention from its new owner.", incident.ID),
				Color:       color,
				Fields: []DiscordWebhookField{
					{Name: "Owner", Value: fmt.Sprintf("user %d", *incident.OwnerUserID), Inline: true},
					{Name: "Type", Value: incident.IncidentType, Inline: true},
					{Name: "Severity", Value: incident.Severity, Inline: true},
					{Name: "Router", Value: fmt.Sprintf("%d", incident.RouterID), Inline: true},
					{Name: "Interface", Value: orDash(incident.InterfaceName), Inline: true},
					{Name: "Status", Value: incident.Status, Inline: true},
					{Name: "Message", Value: orDash(incident.Message), Inline: false},
				},
				Footer: &DiscordFooter{
					Text: fmt.Sprintf("Tenant: %s | Netwatch", tenant.Name),
				},
				Timestamp: time.Now().Format(time.RFC3339),
			},
		},
	}

	return n.post(ctx, webhookURL, payload)
}

func (n *Notifier) post(ctx context.Context, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// recordNotification persists the dispatch outcome. Best effort: a failed
// insert only logs, it never bubbles into the notification path.
func (n *Notifier) recordNotification(incident models.Incident, channel string, sendErr error) {
	status := "sent"
	message := fmt.Sprintf("assignment notification for incident #%d", incident.ID)

	if sendErr != nil {
		status = "failed"
		message = sendErr.Error()
	}

	now := time.Now()
	notification := models.Notification{
		IncidentID: incident.ID,
		UserID:     *incident.OwnerUserID,
		Channel:    channel,
		Status:     status,
		Message:    message,
		Token:      uuid.NewString(),
		SentAt:     &now,
	}

	if err := n.db.Create(&notification).Error; err != nil {
		log.Printf("Failed to record %s notification for incident %d: %v", channel, incident.ID, err)
	}
}

func slackColor(severity string) string {
	switch severity {
	case "critical":
		return "danger"
	case "warning":
		return "warning"
	default:
		return "good"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
