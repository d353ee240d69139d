// Package appfs bundles the files the binaries need at runtime: SQL migrations and email templates.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
