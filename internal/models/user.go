// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package models

// User is the CKAN account behind an API token, as returned by user_show.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"fullname"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Sysadmin    bool   `json:"sysadmin"`
}

// Label returns the most readable name available.
func (u User) Label() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.FullName != "":
		return u.FullName
	default:
		return u.Name
	}
}

// Caller is an authenticated request principal. Credential is the CKAN API
// token and is forwarded on every metadata-store call made for the caller.
type Caller struct {
	User       User
	Credential string
}

// Role returns the authorization role of the caller.
func (c Caller) Role() string {
	if c.User.Sysadmin {
		return RoleAdmin
	}
	return RoleUser
}

// Authorization roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
