package models

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
)

// TexturePackStatus mirrors the acceptTextures flag stored in servers.dat.
type TexturePackStatus string

const (
	TexturePackEnabled  TexturePackStatus = "enabled"
	TexturePackDisabled TexturePackStatus = "disabled"
	TexturePackPrompt   TexturePackStatus = "prompt"
)

// ServerEntry is one saved multiplayer server.
type ServerEntry struct {
	// ID identifies the entry for the lifetime of a session. It is not persisted.
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Address               string            `json:"address"`
	Icon                  []byte            `json:"icon,omitempty"`
	TexturePack           TexturePackStatus `json:"texture_pack"`
	AcceptedCodeOfConduct *bool             `json:"accepted_code_of_conduct,omitempty"`
	Status                Status            `json:"status"`
}

// NewServerEntry creates an unprobed entry with a fresh session ID.
func NewServerEntry(name, address string) ServerEntry {
	return ServerEntry{
		ID:          NewID(),
		Name:        name,
		Address:     strings.TrimSpace(address),
		TexturePack: TexturePackPrompt,
		Status:      Status{Kind: StatusUnloaded},
	}
}

// NewID returns a new session-scoped entry identifier.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the entry.
func (e ServerEntry) Clone() ServerEntry {
	c := e
	if e.Icon != nil {
		c.Icon = bytes.Clone(e.Icon)
	}
	if e.AcceptedCodeOfConduct != nil {
		v := *e.AcceptedCodeOfConduct
		c.AcceptedCodeOfConduct = &v
	}
	return c
}

// DisplayName is the name without legacy formatting codes.
func (e ServerEntry) DisplayName() string {
	return StripColorCodes(e.Name)
}
