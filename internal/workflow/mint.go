// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package workflow

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/authz"
	"github.com/tomtom215/doipub/internal/datacite"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/registry"
)

// MintReserve gives an unpublished dataset a DOI and reserves it as a
// DataCite draft, moving the dataset to reserved.
//
// A dataset that already carries a DOI keeps it. A dataset without one reuses
// the registry record minted for it earlier, if any, so repeating a failed
// reservation never allocates a second suffix.
func (o *Orchestrator) MintReserve(ctx context.Context, subjectID string, caller *models.Caller) (*Outcome, error) {
	t := &transition{op: OpMintReserve, eventType: audit.EventMintReserve, caller: caller,
		subjectID: subjectID, to: models.StateReserved}

	if err := o.authorizer.Authorize(caller, authz.ObjectDataset, authz.ActionMint); err != nil {
		return o.finish(ctx, t, nil, err)
	}

	ds, err := o.fetch(ctx, subjectID, caller)
	if err != nil {
		return o.finish(ctx, t, nil, err)
	}
	t.from = ds.PublicationState
	t.doi = ds.DOI

	if ds.PublicationState != models.StateUnset {
		return o.finish(ctx, t, nil, apperr.UnprocessableState(
			"dataset %s is %s; a DOI can only be reserved for an unpublished dataset", ds.Name, ds.PublicationState).
			WithDetail("publication_state", ds.PublicationState.String()))
	}

	doi, err := o.ensureDOI(ctx, ds, caller)
	if err != nil {
		return o.finish(ctx, t, nil, err)
	}
	t.doi = doi

	result, attempts := o.callRegistrar(ctx, OpMintReserve, doi, func(ctx context.Context) datacite.Result {
		return o.registrar.ReserveDraft(ctx, doi)
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

	if err := o.patchState(ctx, ds, map[string]interface{}{"publication_state": string(models.StateReserved)}, caller); err != nil {
		outcome.Status = apperr.StatusOf(err)
		return o.finish(ctx, t, outcome, err)
	}
	outcome.State = models.StateReserved
	if outcome.Status == 0 {
		outcome.Status = http.StatusCreated
	}
	return o.finish(ctx, t, outcome, nil)
}

// ensureDOI returns the dataset's DOI, minting and attaching one if needed.
func (o *Orchestrator) ensureDOI(ctx context.Context, ds *models.Dataset, caller *models.Caller) (string, error) {
	if ds.DOI != "" {
		prefix, suffix, ok := models.SplitDOI(ds.DOI)
		if !ok {
			return "", apperr.Validation("dataset %s has a malformed DOI %q", ds.Name, ds.DOI)
		}
		if _, err := o.registry.FindByPrefixSuffix(ctx, prefix, suffix); err != nil {
			if apperr.KindOf(err) != apperr.KindNotFound {
				return "", fmt.Errorf("failed to look up DOI %s: %w", ds.DOI, err)
			}
			logging.Ctx(ctx).Warn().Str("doi", ds.DOI).Str("subject_id", ds.ID).
				Msg("Dataset DOI has no registry record, reserving it as is")
		}
		return ds.DOI, nil
	}

	rec, err := o.registry.FindBySubject(ctx, ds.ID)
	switch {
	case err == nil && rec.Prefix == o.settings.Prefix:
		logging.Ctx(ctx).Info().Str("doi", rec.DOI()).Str("subject_id", ds.ID).
			Msg("Reusing DOI previously minted for dataset")
	case err == nil || apperr.KindOf(err) == apperr.KindNotFound:
		rec, err = o.mint(ctx, ds, caller)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("failed to look up DOI for dataset %s: %w", ds.ID, err)
	}

	doi := rec.DOI()
	if _, err := o.metadata.PatchRecord(ctx, ds.ID, map[string]interface{}{"doi": doi}, caller.Credential); err != nil {
		return "", fmt.Errorf("failed to attach DOI %s to dataset %s: %w", doi, ds.ID, err)
	}
	ds.DOI = doi
	return doi, nil
}

func (o *Orchestrator) mint(ctx context.Context, ds *models.Dataset, caller *models.Caller) (*models.DoiRecord, error) {
	snapshot, err := ds.SnapshotJSON()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "failed to snapshot dataset metadata")
	}
	rec, err := registry.Mint(ctx, o.registry, models.DoiRecord{
		Prefix:      o.settings.Prefix,
		Tag:         o.settings.SuffixTag,
		SubjectID:   ds.ID,
		SubjectName: ds.Name,
		OriginSite:  o.settings.SiteID,
		Creator:     caller.User.Name,
		Metadata:    snapshot,
		EntityKind:  models.EntityPackage,
	}, o.settings.ConflictRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to mint DOI for dataset %s: %w", ds.ID, err)
	}
	logging.Ctx(ctx).Info().Str("doi", rec.DOI()).Str("subject_id", ds.ID).Msg("Minted DOI")
	return rec, nil
}
