package domain

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in-progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// Task is a kanban card with its assignee populated.
type Task struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Project     string     `json:"project"`
	Workspace   string     `json:"workspace,omitempty"`
	Assignee    *UserRef   `json:"assignee,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Order       int        `json:"order"`
	CreatedBy   UserID     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ProjectRef is either a bare project id or a populated project document.
// Both shapes decode; it always encodes as the populated form when Name is set.
type ProjectRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

func (p *ProjectRef) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	if r.Type == gjson.String {
		*p = ProjectRef{ID: r.String()}
		return nil
	}
	p.ID = firstString(r, "_id", "id")
	p.Name = r.Get("name").String()
	return nil
}

func (p ProjectRef) MarshalJSON() ([]byte, error) {
	if p.Name == "" {
		return json.Marshal(p.ID)
	}
	type plain ProjectRef
	return json.Marshal(plain(p))
}

// Message is a project chat message.
type Message struct {
	ID        string     `json:"_id"`
	Content   string     `json:"content"`
	Sender    *UserRef   `json:"sender,omitempty"`
	Project   ProjectRef `json:"project"`
	ReadBy    []UserID   `json:"readBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type NotificationType string

const (
	NotificationProjectInvite NotificationType = "project_invite"
	NotificationTaskAssigned  NotificationType = "task_assigned"
)

type Notification struct {
	ID        string           `json:"_id"`
	Recipient UserID           `json:"recipient"`
	Sender    *UserRef         `json:"sender,omitempty"`
	Type      NotificationType `json:"type"`
	Reference string           `json:"reference"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// MessageProjectID extracts the project id from a raw chat message without
// decoding the whole document. The project may be an id or a populated object.
func MessageProjectID(raw []byte) (string, bool) {
	r := gjson.GetBytes(raw, "project")
	switch {
	case !r.Exists():
		return "", false
	case r.Type == gjson.String:
		return r.String(), r.String() != ""
	case r.IsObject():
		id := firstString(r, "_id", "id")
		return id, id != ""
	}
	return "", false
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
