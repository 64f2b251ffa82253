package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lukasbauer/callcontrol/internal/pricing"
	"go.uber.org/zap"
)

// Discord is a simple Discord webhook notifier.
type Discord struct {
	webhookURL string
	logger     *zap.Logger
	client     *http.Client
}

// NewDiscord creates a new Discord notifier. If webhookURL is empty,
// notifications are silently skipped.
func NewDiscord(webhookURL string, logger *zap.Logger) *Discord {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discord{
		webhookURL: webhookURL,
		logger:     logger.Named("discord"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled returns true if the webhook is configured.
func (d *Discord) Enabled() bool {
	return d != nil && d.webhookURL != ""
}

// discordMessage is the payload for Discord webhook.
type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// send posts a message to Discord webhook asynchronously.
// Errors are logged but don't affect caller.
func (d *Discord) send(ctx context.Context, msg discordMessage) {
	if !d.Enabled() {
		return
	}
	// The caller's request usually finishes before the webhook does.
	ctx = context.WithoutCancel(ctx)

	go func() {
		body, err := json.Marshal(msg)
		if err != nil {
			d.logger.Error("failed to marshal message", zap.Error(err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
		if err != nil {
			d.logger.Error("failed to create request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			d.logger.Warn("failed to send webhook", zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			d.logger.Warn("webhook rejected message", zap.Int("status", resp.StatusCode))
		}
	}()
}

// NotifyPricingFailure reports a call that could not be priced because the
// schedule is broken.
func (d *Discord) NotifyPricingFailure(ctx context.Context, callID int64, source string, cause error) {
	d.send(ctx, pricingFailureMessage(callID, source, cause, time.Now()))
}

func pricingFailureMessage(callID int64, source string, cause error, now time.Time) discordMessage {
	return discordMessage{
		Content: "@here",
		Embeds: []discordEmbed{{
			Title:       "Call pricing failed",
			Description: fmt.Sprintf("```%s```", cause),
			Color:       0xFF0000, // Red
			Fields: []embedField{
				{Name: "Call ID", Value: fmt.Sprintf("`%d`", callID), Inline: true},
				{Name: "Source", Value: fmt.Sprintf("`%s`", source), Inline: true},
			},
			Timestamp: now.UTC().Format(time.RFC3339),
		}},
	}
}

// NotifyScheduleIssues reports uncovered stretches of the day and rules whose
// windows overlap. Nothing is sent when both are empty.
func (d *Discord) NotifyScheduleIssues(ctx context.Context, gaps []pricing.Window, overlaps []pricing.RuleOverlap) {
	if len(gaps) == 0 && len(overlaps) == 0 {
		return
	}
	d.send(ctx, scheduleIssuesMessage(gaps, overlaps, time.Now()))
}

func scheduleIssuesMessage(gaps []pricing.Window, overlaps []pricing.RuleOverlap, now time.Time) discordMessage {
	var fields []embedField
	if len(gaps) > 0 {
		parts := make([]string, len(gaps))
		for i, g := range gaps {
			parts[i] = "`" + g.String() + "`"
		}
		fields = append(fields, embedField{Name: "Uncovered", Value: strings.Join(parts, ", ")})
	}
	for _, o := range overlaps {
		fields = append(fields, embedField{
			Name:   "Overlap",
			Value:  fmt.Sprintf("`%s` and `%s` share %s", o.First, o.Second, o.Shared),
			Inline: true,
		})
	}

	color := 0xFFA500 // Orange
	if len(gaps) > 0 {
		color = 0xFF0000
	}
	return discordMessage{
		Embeds: []discordEmbed{{
			Title:       "Pricing schedule needs attention",
			Description: "Calls starting in an uncovered stretch cannot be priced.",
			Color:       color,
			Fields:      fields,
			Timestamp:   now.UTC().Format(time.RFC3339),
		}},
	}
}
