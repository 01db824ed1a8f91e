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
	"github.com/tomtom215/doipub/internal/datacite"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/notify"
)

// Publish registers (or updates) the dataset's DOI as findable on DataCite,
// then marks the dataset published and public. Admin only.
func (o *Orchestrator) Publish(ctx context.Context, subjectID string, caller *models.Caller) (*Outcome, error) {
	t := &transition{op: OpPublish, eventType: audit.EventPublish, caller: caller,
		subjectID: subjectID, to: models.StatePublished}

	if err := o.authorizer.Authorize(caller, authz.ObjectDataset, authz.ActionPublish); err != nil {
		return o.finish(ctx, t, nil, err)
	}

	ds, err := o.fetch(ctx, subjectID, caller)
	if err != nil {
		return o.finish(ctx, t, nil, err)
	}
	t.from = ds.PublicationState
	t.doi = ds.DOI

	if !ds.PublicationState.In(models.StatePubPending, models.StateApproved, models.StatePublished) {
		return o.finish(ctx, t, nil, apperr.UnprocessableState(
			"dataset %s is %s; only datasets pending approval can be published", ds.Name, ds.PublicationState).
			WithDetail("publication_state", ds.PublicationState.String()))
	}
	prefix, suffix, err := o.checkPrefix(ds)
	if err != nil {
		return o.finish(ctx, t, nil, err)
	}

	maintainer, err := ds.MaintainerContact()
	if err != nil {
		return o.finish(ctx, t, nil, apperr.Wrap(err, apperr.KindValidation,
			"dataset maintainer must be a JSON object with an email"))
	}

	doi := ds.DOI
	landingURL := o.settings.LandingURLPrefix + ds.Name
	result, attempts := o.callRegistrar(ctx, OpPublish, doi, func(ctx context.Context) datacite.Result {
		return o.registrar.PublishOrUpdate(ctx, doi, ds, landingURL)
	})
	t.attempts = attempts

	outcome := &Outcome{
		SubjectID: ds.ID,
		DOI:       doi,
		State:     ds.PublicationState,
		Status:    result.StatusCode(),
		Attempts:  attempts,
		Registrar: result,
	}
	if f, failed := result.(datacite.Failure); failed {
		o.notifyFailure(ctx, ds, caller, f)
		return o.finish(ctx, t, outcome, f.Err())
	}

	fields := map[string]interface{}{
		"publication_state": string(models.StatePublished),
		"private":           false,
	}
	if err := o.patchState(ctx, ds, fields, caller); err != nil {
		outcome.Status = apperr.StatusOf(err)
		return o.finish(ctx, t, outcome, err)
	}
	outcome.State = models.StatePublished
	if outcome.Status == 0 {
		outcome.Status = http.StatusOK
	}

	o.refreshSnapshot(ctx, ds, prefix, suffix)

	params := o.baseParams(ds, maintainer.FullName(), maintainer.Email)
	o.notifier.Notify(ctx, notify.TemplatePublished, recipients(maintainer.Email, o.settings.AdminEmail), params)

	return o.finish(ctx, t, outcome, nil)
}

// refreshSnapshot stores the published metadata on the registry record.
// DOIs minted elsewhere have no record; that is not an error.
func (o *Orchestrator) refreshSnapshot(ctx context.Context, ds *models.Dataset, prefix, suffix string) {
	snapshot, err := ds.SnapshotJSON()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("doi", ds.DOI).Msg("Failed to snapshot published metadata")
		return
	}
	err = o.registry.UpdateMetadata(ctx, prefix, suffix, snapshot)
	switch {
	case err == nil:
	case apperr.KindOf(err) == apperr.KindNotFound:
		logging.Ctx(ctx).Debug().Str("doi", ds.DOI).Msg("No registry record for published DOI")
	default:
		logging.Ctx(ctx).Warn().Err(err).Str("doi", ds.DOI).Msg("Failed to update registry metadata snapshot")
	}
}
