// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxDisplayNameLen  = 36
	DefaultDisplayName = "guest"
)

var ErrDisplayNameTooLong = errors.New("display name too long")

// NormalizeDisplayName trims name and falls back to DefaultDisplayName when empty.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName, nil
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}
