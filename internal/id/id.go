// Package id generates sortable identifiers for runs.
package id

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a new ULID string. IDs sort by creation time.
func New() string {
	return ulid.Make().String()
}

// Time extracts the creation time of an id produced by New.
func Time(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
