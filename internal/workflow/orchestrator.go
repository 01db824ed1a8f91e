// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/datacite"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/notify"
	"github.com/tomtom215/doipub/internal/registry"
)

// Operation names used in metrics, logs and audit events.
const (
	OpMintReserve     = "mint_reserve"
	OpRequestApproval = "request_approval"
	OpPublish         = "publish"
)

// MetadataStore reads and patches datasets. Implemented by *ckan.Client.
type MetadataStore interface {
	FetchRecord(ctx context.Context, subjectID, credential string) (*models.Dataset, error)
	PatchRecord(ctx context.Context, subjectID string, fields map[string]interface{}, credential string) (*models.Dataset, error)
}

// Registrar talks to DataCite. Implemented by *datacite.Client.
type Registrar interface {
	ReserveDraft(ctx context.Context, doi string) datacite.Result
	PublishOrUpdate(ctx context.Context, doi string, ds *models.Dataset, landingURL string) datacite.Result
}

// Authorizer decides whether a caller may perform an action. Implemented by
// *authz.Enforcer.
type Authorizer interface {
	Authorize(caller *models.Caller, object, action string) error
}

// Settings is the slice of configuration the orchestrator needs.
type Settings struct {
	Prefix           string
	SuffixTag        string
	SiteID           string
	LandingURLPrefix string
	ConflictRetries  int

	Retries    int
	RetryDelay time.Duration

	// AdminEmail receives approval requests and failure reports.
	AdminEmail string

	// SiteURL is passed to mail templates to build links.
	SiteURL string
}

// SettingsFromConfig extracts Settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Prefix:           cfg.DOI.Prefix,
		SuffixTag:        cfg.DOI.SuffixTag,
		SiteID:           cfg.DOI.SiteID,
		LandingURLPrefix: cfg.DOI.LandingURLPrefix,
		ConflictRetries:  cfg.DOI.ConflictRetries,
		Retries:          cfg.DataCite.Retries,
		RetryDelay:       cfg.DataCite.RetryDelay,
		AdminEmail:       cfg.Email.From,
		SiteURL:          cfg.CKAN.URL,
	}
}

// Deps are the collaborators of an Orchestrator. Notifier and Audit may be
// nil.
type Deps struct {
	Metadata   MetadataStore
	Registrar  Registrar
	Registry   registry.Store
	Notifier   notify.Dispatcher
	Authorizer Authorizer
	Audit      audit.Recorder
}

// Orchestrator runs the DOI lifecycle operations.
type Orchestrator struct {
	metadata   MetadataStore
	registrar  Registrar
	registry   registry.Store
	notifier   notify.Dispatcher
	authorizer Authorizer
	audit      audit.Recorder
	settings   Settings
}

// New validates deps and returns an Orchestrator.
func New(deps Deps, settings Settings) (*Orchestrator, error) {
	switch {
	case deps.Metadata == nil:
		return nil, errors.New("workflow: metadata store is required")
	case deps.Registrar == nil:
		return nil, errors.New("workflow: registrar is required")
	case deps.Registry == nil:
		return nil, errors.New("workflow: registry is required")
	case deps.Authorizer == nil:
		return nil, errors.New("workflow: authorizer is required")
	case settings.Prefix == "":
		return nil, errors.New("workflow: DOI prefix is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if settings.SuffixTag == "" {
		settings.SuffixTag = models.DefaultTag
	}
	if settings.SiteID == "" {
		settings.SiteID = models.DefaultOriginSite
	}
	return &Orchestrator{
		metadata:   deps.Metadata,
		registrar:  deps.Registrar,
		registry:   deps.Registry,
		notifier:   deps.Notifier,
		authorizer: deps.Authorizer,
		audit:      deps.Audit,
		settings:   settings,
	}, nil
}

// Outcome describes the result of a lifecycle operation.
//
// Registrar is set for operations that called DataCite and holds the last
// attempt's result, success or failure.
type Outcome struct {
	SubjectID string                  `json:"subject_id"`
	DOI       string                  `json:"doi,omitempty"`
	State     models.PublicationState `json:"publication_state"`
	Status    int                     `json:"status_code"`
	Attempts  int                     `json:"attempts,omitempty"`
	Registrar datacite.Result         `json:"registrar,omitempty"`
}

// transition collects what is known about one operation for the audit trail.
type transition struct {
	op        string
	eventType audit.EventType
	caller    *models.Caller
	subjectID string
	doi       string
	from      models.PublicationState
	to        models.PublicationState
	attempts  int
}

// finish records metrics and an audit event for t and returns err unchanged.
func (o *Orchestrator) finish(ctx context.Context, t *transition, outcome *Outcome, err error) (*Outcome, error) {
	result := audit.OutcomeSuccess
	status := 0
	if outcome != nil {
		status = outcome.Status
	}
	desc := fmt.Sprintf("%s %s -> %s", t.op, t.from, t.to)
	switch kind := apperr.KindOf(err); {
	case err == nil:
	case kind == apperr.KindForbidden || kind == apperr.KindUnauthorized ||
		kind == apperr.KindUnprocessableState || kind == apperr.KindNotFound ||
		kind == apperr.KindValidation:
		result = audit.OutcomeRejected
		desc = err.Error()
		status = apperr.StatusOf(err)
	default:
		result = audit.OutcomeFailure
		desc = err.Error()
		if status == 0 {
			status = apperr.StatusOf(err)
		}
	}
	metrics.RecordWorkflowTransition(t.op, string(result))

	event := audit.Event{
		Type:        t.eventType,
		Outcome:     result,
		SubjectID:   t.subjectID,
		DOI:         t.doi,
		FromState:   t.from.String(),
		ToState:     t.to.String(),
		Status:      status,
		Attempts:    t.attempts,
		Description: desc,
	}
	if t.caller != nil {
		event.Actor = t.caller.User.Name
		event.ActorRole = t.caller.Role()
	}
	o.audit.Record(ctx, event)

	log := logging.Ctx(ctx)
	if err != nil {
		log.Warn().Err(err).Str("operation", t.op).Str("subject_id", t.subjectID).
			Str("doi", t.doi).Str("outcome", string(result)).Msg("DOI transition did not complete")
	} else {
		log.Info().Str("operation", t.op).Str("subject_id", t.subjectID).Str("doi", t.doi).
			Str("from", t.from.String()).Str("to", t.to.String()).Int("attempts", t.attempts).
			Msg("DOI transition completed")
	}
	return outcome, err
}

// fetch loads the dataset for caller. The state is never cached.
func (o *Orchestrator) fetch(ctx context.Context, subjectID string, caller *models.Caller) (*models.Dataset, error) {
	ds, err := o.metadata.FetchRecord(ctx, subjectID, caller.Credential)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset %s: %w", subjectID, err)
	}
	return ds, nil
}

// checkPrefix verifies the dataset's DOI was minted under our prefix.
func (o *Orchestrator) checkPrefix(ds *models.Dataset) (prefix, suffix string, err error) {
	if strings.TrimSpace(ds.DOI) == "" {
		return "", "", apperr.UnprocessableState("dataset %s has no DOI", ds.Name)
	}
	prefix, suffix, ok := models.SplitDOI(ds.DOI)
	if !ok || prefix != o.settings.Prefix {
		return "", "", apperr.Forbidden("invalid DOI prefix").
			WithDetail("doi", ds.DOI).
			WithDetail("expected_prefix", o.settings.Prefix)
	}
	return prefix, suffix, nil
}

// patchState writes the new state after a successful registrar call. A
// failure here leaves DataCite ahead of CKAN and is logged as such.
func (o *Orchestrator) patchState(ctx context.Context, ds *models.Dataset, fields map[string]interface{}, caller *models.Caller) error {
	if _, err := o.metadata.PatchRecord(ctx, ds.ID, fields, caller.Credential); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("subject_id", ds.ID).
			Str("doi", ds.DOI).
			Interface("fields", fields).
			Msg("Registrar call succeeded but dataset state patch failed; CKAN and DataCite are inconsistent")
		return apperr.Wrap(err, apperr.KindUpstreamUnavailable,
			fmt.Sprintf("DOI %s was registered but dataset %s could not be updated", ds.DOI, ds.Name))
	}
	return nil
}

func datasetTitle(ds *models.Dataset) string {
	if ds.Name != "" {
		return ds.Name
	}
	return ds.ID
}

// baseParams are the template parameters shared by every notification.
func (o *Orchestrator) baseParams(ds *models.Dataset, userName, userEmail string) map[string]interface{} {
	return map[string]interface{}{
		notify.ParamUserName:         userName,
		notify.ParamUserEmail:        userEmail,
		notify.ParamPackageTitle:     datasetTitle(ds),
		notify.ParamPackageURLPrefix: o.settings.LandingURLPrefix,
		notify.ParamSiteURL:          o.settings.SiteURL,
	}
}

// recipients drops empty and duplicate addresses, keeping order.
func recipients(addrs ...string) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// notifyFailure reports a failed registrar task to the admin and the caller.
func (o *Orchestrator) notifyFailure(ctx context.Context, ds *models.Dataset, caller *models.Caller, f datacite.Failure) {
	params := o.baseParams(ds, caller.User.Label(), caller.User.Email)
	params[notify.ParamErrorMsg] = fmt.Sprintf("DOI %s: %s (status %d)", ds.DOI, f.Message(), f.Status)
	o.notifier.Notify(ctx, notify.TemplateTaskFailed, recipients(o.settings.AdminEmail, caller.User.Email), params)
}
