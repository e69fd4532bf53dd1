package models

import (
	"time"
)

// Setting is one key/value pair from the configuration store. The engine only
// reads settings; writes happen through operator tooling.
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}
