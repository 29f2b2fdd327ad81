package models

import "time"

// DateLayout is the wire format of Diary.EntryDate.
const DateLayout = "2006-01-02"

// Diary is a dated entry owned by exactly one user.
type Diary struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	EntryDate time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DiaryChanges carries the mutable fields of an update. A nil EntryDate
// keeps the stored date.
type DiaryChanges struct {
	Title     string
	Content   string
	EntryDate *time.Time
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
