// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

/*
Package workflow drives a dataset's DOI through its publication lifecycle.

The publication state lives on the CKAN dataset and moves through

	unset -> reserved -> pub_pending -> published
	                          ^            |
	                          +------------+  (update)

An admin may also have set approved by hand; Publish accepts it.

Every operation re-fetches the dataset, checks the state precondition, talks
to DataCite with a bounded retry budget and only then patches the new state
back onto the dataset. A failed registrar call leaves the state untouched and
sends exactly one datacite-task-failed notification.

Usage:

	orch, err := workflow.New(workflow.Deps{
		Metadata:   ckanClient,
		Registrar:  dataciteClient,
		Registry:   store,
		Notifier:   dispatcher,
		Authorizer: enforcer,
		Audit:      auditLogger,
	}, workflow.SettingsFromConfig(cfg))

	outcome, err := orch.MintReserve(ctx, "my-dataset", caller)

Operations on the same dataset are not serialized. Two concurrent calls may
both pass the precondition; the last state patch wins.
*/
package workflow
