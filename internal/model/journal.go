package model

import (
	"time"
)

// JournalEntry is a dated trading journal note
type JournalEntry struct {
	ID        int       `json:"id" db:"id"`
	Date      time.Time `json:"date" db:"date"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Tags      string    `json:"tags" db:"tags"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// JournalEntryCreate is the payload for creating a journal entry
type JournalEntryCreate struct {
	Date    time.Time `json:"date" binding:"required"`
	Title   string    `json:"title" binding:"required"`
	Content string    `json:"content"`
	Tags    string    `json:"tags"`
}

// JournalEntryUpdate is the payload for updating a journal entry; nil fields
// are left unchanged
type JournalEntryUpdate struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Tags    *string `json:"tags"`
}
