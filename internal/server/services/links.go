package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	filePrefix       = "file"
	legacyFolderPrfx = "folder"
	sharePrefix      = "share_"

	// ShareTokenBytes is the entropy of a folder share token.
	ShareTokenBytes = 12
)

// StartKind tells what a deep-link payload asks for.
type StartKind int

const (
	StartNone StartKind = iota
	StartFile
	StartFolderByID
	StartFolderByToken
	StartMalformed
)

func (k StartKind) String() string {
	switch k {
	case StartNone:
		return "none"
	case StartFile:
		return "file"
	case StartFolderByID:
		return "folder_id"
	case StartFolderByToken:
		return "folder_token"
	default:
		return "malformed"
	}
}

// StartRequest is a decoded /start payload. ID is set for StartFile and
// StartFolderByID, Token for StartFolderByToken.
type StartRequest struct {
	Kind  StartKind
	ID    int64
	Token string
}

// ParseStart decodes a deep-link payload:
//
//	file<digits>    single file
//	folder<digits>  folder by id (legacy, owner only)
//	share_<token>   folder by share token
//
// An empty payload is StartNone; anything else is StartMalformed.
func ParseStart(payload string) StartRequest {
	payload = strings.TrimSpace(payload)
	switch {
	case payload == "":
		return StartRequest{Kind: StartNone}
	case strings.HasPrefix(payload, sharePrefix):
		token := strings.TrimPrefix(payload, sharePrefix)
		if !validToken(token) {
			return StartRequest{Kind: StartMalformed}
		}
		return StartRequest{Kind: StartFolderByToken, Token: token}
	case strings.HasPrefix(payload, legacyFolderPrfx):
		if id, ok := parseID(strings.TrimPrefix(payload, legacyFolderPrfx)); ok {
			return StartRequest{Kind: StartFolderByID, ID: id}
		}
	case strings.HasPrefix(payload, filePrefix):
		if id, ok := parseID(strings.TrimPrefix(payload, filePrefix)); ok {
			return StartRequest{Kind: StartFile, ID: id}
		}
	}
	return StartRequest{Kind: StartMalformed}
}

func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Telegram start payloads allow [A-Za-z0-9_-] only, up to 64 chars.
func validToken(s string) bool {
	if s == "" || len(s)+len(sharePrefix) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// FilePayload is the start payload of a single-file link.
func FilePayload(id int64) string {
	return filePrefix + strconv.FormatInt(id, 10)
}

// SharePayload is the start payload of a folder share link.
func SharePayload(token string) string {
	return sharePrefix + token
}

// DeepLink builds https://t.me/<bot>?start=<payload>.
func DeepLink(botUserName, payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", strings.TrimPrefix(botUserName, "@"), url.QueryEscape(payload))
}
