// Package services contains the server-side business logic: accounts,
// sessions, ownership-scoped diary access and exports. Services talk to
// storage only through repomanager.RepositoryManager.
package services

import "time"

func utcNow() time.Time {
	return time.Now().UTC()
}
