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

package webhook

import (
	"context"

	"github.com/ashita-ai/tessera/pkg/models"
)

// NotifyContractPublished implements pkg/contract.Notifier, dispatching
// contract.published.
func (p *Pipeline) NotifyContractPublished(ctx context.Context, contract models.Contract) {
	p.Dispatch(ctx, EventContractPublished, map[string]any{
		"contract_id":  contract.ID,
		"asset_id":     contract.AssetID,
		"version":      contract.Version,
		"published_by": contract.PublishedBy,
	})
}

// NotifyProposalCreated implements pkg/contract.Notifier, dispatching
// proposal.created.
func (p *Pipeline) NotifyProposalCreated(ctx context.Context, proposal models.Proposal) {
	p.Dispatch(ctx, EventProposalCreated, map[string]any{
		"proposal_id": proposal.ID,
		"asset_id":    proposal.AssetID,
		"change_type": proposal.ChangeType,
		"proposed_by": proposal.ProposedBy,
	})
}

// NotifyProposalResolved implements pkg/proposal.Notifier, mapping the
// proposal's terminal status to the matching event kind.
func (p *Pipeline) NotifyProposalResolved(ctx context.Context, proposal models.Proposal) {
	event := resolvedEvent(proposal.Status)
	if event == "" {
		return
	}
	p.Dispatch(ctx, event, map[string]any{
		"proposal_id": proposal.ID,
		"asset_id":    proposal.AssetID,
		"status":      proposal.Status,
	})
}

func resolvedEvent(status models.ProposalStatus) string {
	switch status {
	case models.ProposalApproved:
		return EventProposalApproved
	case models.ProposalRejected:
		return EventProposalRejected
	case models.ProposalWithdrawn:
		return EventProposalWithdrawn
	default:
		return ""
	}
}
