// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package notify sends workflow notifications through the mail templating API.
//
// Notifications are fire-and-forget: Notify never returns an error and never
// retries. Failures are logged and counted, and the workflow continues.
package notify

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
)

// Template names a mail template on the mailer API.
type Template string

const (
	TemplateRequest    Template = "datacite-request"
	TemplatePublished  Template = "datacite-published"
	TemplateTaskFailed Template = "datacite-task-failed"
)

// Template parameter keys.
const (
	ParamUserName         = "user_name"
	ParamUserEmail        = "user_email"
	ParamPackageTitle     = "package_title"
	ParamPackageURLPrefix = "package_url_prefix"
	ParamSiteURL          = "site_url"
	ParamIsUpdate         = "is_update"
	ParamErrorMsg         = "error_msg"
)

// Dispatcher delivers templated notifications.
type Dispatcher interface {
	Notify(ctx context.Context, template Template, recipients []string, params map[string]interface{})
}

// Recipients marshals as a bare string when there is exactly one address and
// as a list otherwise, which is what the mailer API expects.
type Recipients []string

// MarshalJSON implements json.Marshaler.
func (r Recipients) MarshalJSON() ([]byte, error) {
	if len(r) == 1 {
		return json.Marshal(r[0])
	}
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(r))
}

// Nop discards every notification.
type Nop struct{}

// Notify implements Dispatcher.
func (Nop) Notify(context.Context, Template, []string, map[string]interface{}) {}

// Sent is one notification captured by a Recorder.
type Sent struct {
	Template   Template
	Recipients []string
	Params     map[string]interface{}
}

// Recorder keeps notifications in memory. It is safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

// Notify implements Dispatcher.
func (r *Recorder) Notify(_ context.Context, template Template, recipients []string, params map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{
		Template:   template,
		Recipients: append([]string(nil), recipients...),
		Params:     params,
	})
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Count returns how many notifications used template.
func (r *Recorder) Count(template Template) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.Template == template {
			n++
		}
	}
	return n
}
