package models

import "time"

// InterviewRecord is an archived, immutable copy of a completed interview.
type InterviewRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	Age       int            `json:"age"`
	Answers   map[int]string `json:"answers"` // keyed by one-based question number
	CreatedAt time.Time      `json:"created_at"`
}

// Validate performs validation on an InterviewRecord structure.
func (r *InterviewRecord) Validate() error {
	if r.ID == "" {
		return ErrEmptyRecordID
	}
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	return nil
}

// ReportRecord is an archived analysis report generated from an interview.
// IsFallback marks reports built by the deterministic fallback path rather
// than the completion service.
type ReportRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	InterviewID string    `json:"interview_id,omitempty"`
	Content     string    `json:"content"`
	IsFallback  bool      `json:"is_fallback,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate performs validation on a ReportRecord structure.
func (r *ReportRecord) Validate() error {
	if r.ID == "" {
		return ErrEmptyRecordID
	}
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if r.Content == "" {
		return ErrEmptyReportContent
	}
	return nil
}
