// Package admin implements the administrator surface: a dashboard, account
// management, all uploads, and CRUD over the music catalog.
//
// Service.Load fetches the whole collection of a tab and renders it to a
// Table of display strings. Mutations validate their form values locally,
// issue one request, and on success reload the tab so the caller always
// shows what the backend holds. Deletes go through a Confirmer; without an
// approval nothing is sent.
package admin
