// Package domain contains entities without transport logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode"
)

const MaxIDLen = 64

var (
	ErrIDEmpty   = errors.New("id empty")
	ErrIDTooLong = errors.New("id too long")
	ErrIDInvalid = errors.New("id contains invalid characters")
)

type UserID string

// ValidateID checks an entity id that will be embedded in a room key.
func ValidateID(id string) error {
	if id == "" {
		return ErrIDEmpty
	}
	if len(id) > MaxIDLen {
		return ErrIDTooLong
	}
	if strings.IndexFunc(id, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return ErrIDInvalid
	}
	return nil
}

// UserRef is a populated user reference as the document store returns it.
type UserRef struct {
	ID     UserID `json:"_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}
