package domain

import (
	"errors"
	"fmt"
	"strings"
)

type Namespace string

const (
	NamespaceUser      Namespace = "user"
	NamespaceWorkspace Namespace = "workspace"
	NamespaceProject   Namespace = "project"
)

var ErrInvalidRoomKey = errors.New("invalid room key")

// RoomKey identifies a room, e.g. "project:42". Keys are case-sensitive.
type RoomKey string

func NewRoomKey(ns Namespace, id string) (RoomKey, error) {
	switch ns {
	case NamespaceUser, NamespaceWorkspace, NamespaceProject:
	default:
		return "", fmt.Errorf("%w: unknown namespace %q", ErrInvalidRoomKey, ns)
	}
	if err := ValidateID(id); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRoomKey, err)
	}
	return RoomKey(string(ns) + ":" + id), nil
}

func UserRoom(id UserID) (RoomKey, error)      { return NewRoomKey(NamespaceUser, string(id)) }
func WorkspaceRoom(id string) (RoomKey, error) { return NewRoomKey(NamespaceWorkspace, id) }
func ProjectRoom(id string) (RoomKey, error)   { return NewRoomKey(NamespaceProject, id) }

// ParseRoomKey validates a key received from outside the process.
func ParseRoomKey(s string) (RoomKey, error) {
	ns, id, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q has no namespace", ErrInvalidRoomKey, s)
	}
	return NewRoomKey(Namespace(ns), id)
}

func (k RoomKey) Namespace() Namespace {
	ns, _, _ := strings.Cut(string(k), ":")
	return Namespace(ns)
}

func (k RoomKey) ID() string {
	_, id, _ := strings.Cut(string(k), ":")
	return id
}

func (k RoomKey) String() string { return string(k) }
