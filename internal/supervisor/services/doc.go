// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package services adapts DOIPub components to suture.Service so they can be
// run by the supervisor tree.
//
// Each wrapper blocks in Serve until its context is canceled and implements
// fmt.Stringer so supervisor events name the service.
package services
