package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventName is the wire name of a server->client event.
type EventName string

const (
	EventTaskCreated     EventName = "task_created"
	EventTaskUpdated     EventName = "task_updated"
	EventTaskDeleted     EventName = "task_deleted"
	EventReceiveMessage  EventName = "receive_message"
	EventNewNotification EventName = "new_notification"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Event is the closed set of realtime events. Each variant knows its wire name,
// its payload and the room it is addressed to.
type Event interface {
	Name() EventName
	Room() (RoomKey, error)
	Payload() any
	isEvent()
}

type TaskCreated struct{ Task Task }

type TaskUpdated struct{ Task Task }

// TaskDeleted carries only the task id on the wire; ProjectID selects the room.
type TaskDeleted struct {
	TaskID    string
	ProjectID string
}

type MessageReceived struct{ Message Message }

type NotificationCreated struct{ Notification Notification }

func (TaskCreated) Name() EventName         { return EventTaskCreated }
func (TaskUpdated) Name() EventName         { return EventTaskUpdated }
func (TaskDeleted) Name() EventName         { return EventTaskDeleted }
func (MessageReceived) Name() EventName     { return EventReceiveMessage }
func (NotificationCreated) Name() EventName { return EventNewNotification }

func (e TaskCreated) Room() (RoomKey, error)     { return ProjectRoom(e.Task.Project) }
func (e TaskUpdated) Room() (RoomKey, error)     { return ProjectRoom(e.Task.Project) }
func (e TaskDeleted) Room() (RoomKey, error)     { return ProjectRoom(e.ProjectID) }
func (e MessageReceived) Room() (RoomKey, error) { return ProjectRoom(e.Message.Project.ID) }
func (e NotificationCreated) Room() (RoomKey, error) {
	return UserRoom(e.Notification.Recipient)
}

func (e TaskCreated) Payload() any         { return e.Task }
func (e TaskUpdated) Payload() any         { return e.Task }
func (e TaskDeleted) Payload() any         { return e.TaskID }
func (e MessageReceived) Payload() any     { return e.Message }
func (e NotificationCreated) Payload() any { return e.Notification }

func (TaskCreated) isEvent()         {}
func (TaskUpdated) isEvent()         {}
func (TaskDeleted) isEvent()         {}
func (MessageReceived) isEvent()     {}
func (NotificationCreated) isEvent() {}

// KnownEvent reports whether name belongs to the closed event set.
func KnownEvent(name EventName) bool {
	switch name {
	case EventTaskCreated, EventTaskUpdated, EventTaskDeleted, EventReceiveMessage, EventNewNotification:
		return true
	}
	return false
}

// DecodeEvent turns a wire (name, data) pair back into its typed variant.
// Room information that is not on the wire (TaskDeleted.ProjectID) stays empty.
// A missing or null payload, or one without its id, is rejected.
func DecodeEvent(name EventName, data []byte) (Event, error) {
	if !KnownEvent(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: %s has no data", ErrInvalidPayload, name)
	}
	ev, err := decodeEvent(name, data)
	if err != nil {
		return nil, err
	}
	if eventID(ev) == "" {
		return nil, fmt.Errorf("%w: %s without id", ErrInvalidPayload, name)
	}
	return ev, nil
}

func eventID(ev Event) string {
	switch e := ev.(type) {
	case TaskCreated:
		return e.Task.ID
	case TaskUpdated:
		return e.Task.ID
	case TaskDeleted:
		return e.TaskID
	case MessageReceived:
		return e.Message.ID
	case NotificationCreated:
		return e.Notification.ID
	}
	return ""
}

func decodeEvent(name EventName, data []byte) (Event, error) {
	switch name {
	case EventTaskCreated:
		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return TaskCreated{Task: t}, nil
	case EventTaskUpdated:
		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return TaskUpdated{Task: t}, nil
	case EventTaskDeleted:
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return TaskDeleted{TaskID: id}, nil
	case EventReceiveMessage:
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return MessageReceived{Message: m}, nil
	case EventNewNotification:
		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return NotificationCreated{Notification: n}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}
