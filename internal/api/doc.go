// Package api provides the backup dispatcher REST API.
//
// POST /api/v1/backups creates a pending backup record and dispatches its
// job. GET /api/v1/backups?repo=&owner= lists a repository's history, newest
// first. GET /api/v1/backups/{id} returns one record.
package api
