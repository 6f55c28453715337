package storedb

import "errors"

var (
	ErrCreateDir     = errors.New("storedb: create database directory")
	ErrOpen          = errors.New("storedb: open database")
	ErrMigrate       = errors.New("storedb: apply migration")
	ErrBadMigrations = errors.New("storedb: invalid migration list")
)
