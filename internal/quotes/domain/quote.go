package domain

import (
	"errors"
	"strings"
	"time"
)

// QuoteStatus captures whether a quote is the current revision of its document.
type QuoteStatus string

const (
	StatusActive     QuoteStatus = "active"
	StatusSuperseded QuoteStatus = "superseded"
)

// ValidCategories lists the categories a quote may be filed under.
var ValidCategories = []string{
	"general",
	"inspiration",
	"wisdom",
	"success",
	"love",
	"life",
	"business",
	"technology",
}

const (
	MinContentLength = 3
	MaxContentLength = 500
	MaxAuthorLength  = 100
	MaxTags          = 10
	MinTagLength     = 2
	MaxTagLength     = 30
)

// Quote represents one revision of a document's quote. Quotes are immutable
// once written; a newer revision supersedes the previous one.
type Quote struct {
	ID         string      `json:"id"`
	DocumentID string      `json:"document_id"`
	Content    string      `json:"content"`
	Author     string      `json:"author,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	Category   string      `json:"category"`
	Language   string      `json:"language"`
	Version    int64       `json:"version"`
	Status     QuoteStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Validate ensures the quote adheres to business constraints.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.DocumentID) == "" {
		return errors.New("document_id is required")
	}
	if len(q.Content) < MinContentLength || len(q.Content) > MaxContentLength {
		return errors.New("content must be between 3 and 500 characters")
	}
	if len(q.Author) > MaxAuthorLength {
		return errors.New("author must be at most 100 characters")
	}
	if len(q.Tags) > MaxTags {
		return errors.New("maximum 10 tags allowed")
	}
	for _, tag := range q.Tags {
		if len(tag) < MinTagLength || len(tag) > MaxTagLength {
			return errors.New("tags must be between 2 and 30 characters")
		}
	}
	if q.Category != "" && !isValidCategory(q.Category) {
		return errors.New("category must be one of: " + strings.Join(ValidCategories, ", "))
	}
	if q.Language != "" && len(q.Language) != 2 {
		return errors.New("language must be a 2-letter ISO code")
	}
	return nil
}

// IsActive indicates whether this quote is the current revision.
func (q Quote) IsActive() bool {
	return q.Status == StatusActive
}

func isValidCategory(category string) bool {
	for _, valid := range ValidCategories {
		if category == valid {
			return true
		}
	}
	return false
}
