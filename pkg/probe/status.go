package probe

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const faviconPrefix = "data:image/png;base64,"

var (
	errMissingPlayers = errors.New("status response has no players object")
	errMissingVersion = errors.New("status response has no version object")
	errBadFavicon     = errors.New("favicon is not a base64 png data uri")
)

// PlayerSample is one entry of the online player preview.
type PlayerSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Result is a successful status probe.
type Result struct {
	PingMs             int64          `json:"ping_ms"`
	Online             int            `json:"online"`
	Max                int            `json:"max"`
	MOTD               string         `json:"motd"`
	Version            string         `json:"version"`
	Protocol           int            `json:"protocol"`
	Favicon            []byte         `json:"favicon,omitempty"`
	Players            []PlayerSample `json:"players,omitempty"`
	EnforcesSecureChat bool           `json:"enforces_secure_chat"`
	Raw                string         `json:"-"`
}

type statusResponse struct {
	Description json.RawMessage `json:"description"`
	Players     *struct {
		Max    int            `json:"max"`
		Online int            `json:"online"`
		Sample []PlayerSample `json:"sample"`
	} `json:"players"`
	Version *struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Favicon            *string `json:"favicon"`
	EnforcesSecureChat bool    `json:"enforcesSecureChat"`
}

// parseStatus decodes the status JSON a server answers with.
func parseStatus(raw string) (*Result, error) {
	var resp statusResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode status json: %w", err)
	}
	if resp.Players == nil {
		return nil, errMissingPlayers
	}
	if resp.Version == nil {
		return nil, errMissingVersion
	}

	result := &Result{
		Online:             resp.Players.Online,
		Max:                resp.Players.Max,
		Players:            resp.Players.Sample,
		Version:            resp.Version.Name,
		Protocol:           resp.Version.Protocol,
		EnforcesSecureChat: resp.EnforcesSecureChat,
		Raw:                raw,
	}

	if len(resp.Description) > 0 {
		motd, err := flattenDescription(resp.Description)
		if err != nil {
			return nil, fmt.Errorf("decode description: %w", err)
		}
		result.MOTD = motd
	}

	if resp.Favicon != nil {
		icon, err := decodeFavicon(*resp.Favicon)
		if err != nil {
			return nil, err
		}
		result.Favicon = icon
	}

	return result, nil
}

func decodeFavicon(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, faviconPrefix) {
		return nil, errBadFavicon
	}
	data := strings.ReplaceAll(uri[len(faviconPrefix):], "\n", "")
	icon, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadFavicon, err)
	}
	return icon, nil
}

// chatComponent is the subset of a text component needed for plain text.
type chatComponent struct {
	Type  string            `json:"type"`
	Text  *string           `json:"text"`
	Extra []json.RawMessage `json:"extra"`
}

// flattenDescription renders a description that may be a plain string, a
// text component with nested extras, or an array of components.
func flattenDescription(raw json.RawMessage) (string, error) {
	var sb strings.Builder
	if err := appendComponent(&sb, raw); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func appendComponent(sb *strings.Builder, raw json.RawMessage) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		sb.WriteString(s)
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return err
		}
		for _, part := range parts {
			if err := appendComponent(sb, part); err != nil {
				return err
			}
		}
	case '{':
		var c chatComponent
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		// Only text components carry literal text; others keep their extras.
		if (c.Type == "" || c.Type == "text") && c.Text != nil {
			sb.WriteString(*c.Text)
		}
		for _, extra := range c.Extra {
			if err := appendComponent(sb, extra); err != nil {
				return err
			}
		}
	default:
		// Numbers and booleans show up from sloppy server software.
		sb.WriteString(trimmed)
	}
	return nil
}
