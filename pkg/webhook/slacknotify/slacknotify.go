/*
Copyright 2025 The Tessera Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package slacknotify posts a best-effort Slack notification when a
// breaking-change proposal is created, alongside (not instead of) the
// webhook pipeline's at-least-once delivery to the configured receiver.
// A Slack delivery failure is logged and otherwise ignored; it never
// affects the response to the request that triggered it.
package slacknotify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/pkg/models"
)

// Notifier posts proposal-created summaries to a Slack incoming webhook.
// It is a secondary, fire-and-forget channel: construct with an empty
// WebhookURL to disable it entirely.
type Notifier struct {
	webhookURL string
	log        *zap.Logger
}

// New constructs a Notifier. log may be nil. An empty webhookURL makes
// Notify a no-op, so callers can wire this unconditionally.
func New(webhookURL string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{webhookURL: webhookURL, log: log}
}

// NotifyProposalCreated posts a single Slack message summarizing a newly
// created proposal. It never blocks its caller for longer than the
// underlying HTTP post and never returns an error; failures are logged.
func (n *Notifier) NotifyProposalCreated(ctx context.Context, assetFQN string, proposal models.Proposal) {
	if n.webhookURL == "" {
		return
	}
	msg := slack.WebhookMessage{
		Text: fmt.Sprintf(":warning: breaking change proposed for `%s`", assetFQN),
		Attachments: []slack.Attachment{
			{
				Color: "warning",
				Fields: []slack.AttachmentField{
					{Title: "Proposal", Value: proposal.ID.String(), Short: true},
					{Title: "Change type", Value: string(proposal.ChangeType), Short: true},
				},
			},
		},
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, &msg); err != nil {
		n.log.Warn("slacknotify: post webhook", zap.Error(err), zap.String("proposal_id", proposal.ID.String()))
	}
}
