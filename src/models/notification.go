package models

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeveritySuccess, SeverityError:
		return true
	}
	return false
}

// NotificationEdit is the state of a notification right before an edit.
type NotificationEdit struct {
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Type     Severity   `json:"type"`
	EditedAt *time.Time `json:"editedAt"`
	EditedBy *int       `json:"editedBy"`
}

type Notification struct {
	ID int `db:"id"`

	RecipientID int      `db:"recipient_id"`
	CreatorID   int      `db:"creator_id"`
	Title       string   `db:"title"`
	Message     string   `db:"message"`
	Type        Severity `db:"type"`
	IsRead      bool     `db:"is_read"`

	EditedAt *time.Time         `db:"edited_at"`
	EditedBy *int               `db:"edited_by"`
	History  []NotificationEdit `db:"edit_history"`

	CreatedAt time.Time `db:"created_at"`
}

// Snapshot captures the fields an edit can change, plus the previous edit stamp.
func (n *Notification) Snapshot() NotificationEdit {
	return NotificationEdit{
		Title:    n.Title,
		Message:  n.Message,
		Type:     n.Type,
		EditedAt: n.EditedAt,
		EditedBy: n.EditedBy,
	}
}

// NotificationPage is one page of a notification listing.
type NotificationPage struct {
	Items       []*Notification
	Total       int
	UnreadCount int
}
