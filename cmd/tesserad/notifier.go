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

package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/pkg/contract"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
	"github.com/ashita-ai/tessera/pkg/webhook"
	"github.com/ashita-ai/tessera/pkg/webhook/slacknotify"
)

// fanoutNotifier satisfies pkg/contract.Notifier by delivering to both the
// registered webhook pipeline and a Slack channel. slacknotify's
// NotifyProposalCreated hook wants the asset's FQN rather than its ID, so
// this type resolves it from the store before forwarding the call.
type fanoutNotifier struct {
	webhook *webhook.Pipeline
	slack   *slacknotify.Notifier
	store   store.Store
	log     *zap.Logger
}

func newFanoutNotifier(wh *webhook.Pipeline, slack *slacknotify.Notifier, st store.Store, log *zap.Logger) *fanoutNotifier {
	return &fanoutNotifier{webhook: wh, slack: slack, store: st, log: log}
}

var _ contract.Notifier = (*fanoutNotifier)(nil)

func (f *fanoutNotifier) NotifyContractPublished(ctx context.Context, c models.Contract) {
	f.webhook.NotifyContractPublished(ctx, c)
}

func (f *fanoutNotifier) NotifyProposalCreated(ctx context.Context, p models.Proposal) {
	f.webhook.NotifyProposalCreated(ctx, p)

	asset, err := f.store.GetAsset(ctx, p.AssetID)
	if err != nil {
		f.log.Warn("fanout notifier: resolve asset FQN for slack notification", zap.Error(err), zap.String("asset_id", p.AssetID.String()))
		return
	}
	f.slack.NotifyProposalCreated(ctx, asset.FQN, p)
}
