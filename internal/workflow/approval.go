// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package workflow

import (
	"context"
	"net/http"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/authz"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/notify"
)

// RequestApproval asks the admin to publish a reserved dataset, or to update
// an already published one, and moves it to pub_pending.
func (o *Orchestrator) RequestApproval(ctx context.Context, subjectID string, caller *models.Caller) (*Outcome, error) {
	t := &transition{op: OpRequestApproval, eventType: audit.EventRequestApproval, caller: caller,
		subjectID: subjectID, to: models.StatePubPending}

	if err := o.authorizer.Authorize(caller, authz.ObjectDataset, authz.ActionRequestApproval); err != nil {
		return o.finish(ctx, t, nil, err)
	}

	ds, err := o.fetch(ctx, subjectID, caller)
	if err != nil {
		return o.finish(ctx, t, nil, err)
	}
	t.from = ds.PublicationState
	t.doi = ds.DOI

	if !ds.PublicationState.In(models.StateReserved, models.StatePubPending, models.StatePublished) {
		return o.finish(ctx, t, nil, apperr.UnprocessableState(
			"dataset %s is %s; approval can only be requested once a DOI is reserved", ds.Name, ds.PublicationState).
			WithDetail("publication_state", ds.PublicationState.String()))
	}
	if _, _, err := o.checkPrefix(ds); err != nil {
		return o.finish(ctx, t, nil, err)
	}

	params := o.baseParams(ds, caller.User.Label(), caller.User.Email)
	params[notify.ParamIsUpdate] = ds.PublicationState == models.StatePublished
	o.notifier.Notify(ctx, notify.TemplateRequest, recipients(o.settings.AdminEmail), params)

	if _, err := o.metadata.PatchRecord(ctx, ds.ID,
		map[string]interface{}{"publication_state": string(models.StatePubPending)}, caller.Credential); err != nil {
		return o.finish(ctx, t, nil, err)
	}

	return o.finish(ctx, t, &Outcome{
		SubjectID: ds.ID,
		DOI:       ds.DOI,
		State:     models.StatePubPending,
		Status:    http.StatusOK,
	}, nil)
}
