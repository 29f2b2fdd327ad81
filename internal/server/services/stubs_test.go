package services

import (
	"github.com/dmitrijs2005/dailydiary/internal/dbx"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/users"
)

// stubManager is the in-memory manager with the users repository swapped out.
type stubManager struct {
	*repomanager.MemoryRepositoryManager
	users users.Repository
}

func (m *stubManager) Users(dbx.DBTX) users.Repository { return m.users }

// fakeUsers panics on any method a test does not override.
type fakeUsers struct{ users.Repository }
