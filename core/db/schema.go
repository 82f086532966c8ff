package db

import "strings"

const (
	gooseUp   = "-- +goose Up"
	gooseDown = "-- +goose Down"
)

// upSection returns the statements between the goose Up and Down markers.
func upSection(migration string) string {
	start := strings.Index(migration, gooseUp)
	if start < 0 {
		return migration
	}
	body := migration[start+len(gooseUp):]
	if end := strings.Index(body, gooseDown); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
