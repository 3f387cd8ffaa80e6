package models

import "github.com/google/uuid"

// ensureID assigns a v4 UUID when the caller left the primary key empty, so
// rows can be created the same way against Postgres and sqlite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
