package domain

import (
	"regexp"
	"strings"
	"time"
)

// Identity é um sujeito cadastrado no sistema. O ID é a chave do espaço
// de labels do classificador: estável durante toda a vida da identidade
// e igual ao label usado no embedding store.
type Identity struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FacialData []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Level is a closed enumeration of permission levels.
type Level string

const (
	LevelSuperadmin Level = "superadmin"
	LevelAdmin      Level = "admin"
	LevelModerator  Level = "moderator"
	LevelUser       Level = "user"
	LevelGuest      Level = "guest"
)

// Levels lists every known permission level.
func Levels() []Level {
	return []Level{LevelSuperadmin, LevelAdmin, LevelModerator, LevelUser, LevelGuest}
}

// ParseLevel validates a raw string against the closed enumeration.
// Input is lowercased at the boundary so the pipeline never re-checks.
func ParseLevel(raw string) (Level, error) {
	level := Level(strings.ToLower(strings.TrimSpace(raw)))
	switch level {
	case LevelSuperadmin, LevelAdmin, LevelModerator, LevelUser, LevelGuest:
		return level, nil
	}
	return "", ErrInvalidPermissionLevel
}

// ParseLevels validates a permission list for enrollment. Empty lists
// are rejected before any side effect.
func ParseLevels(raw []string) ([]Level, error) {
	if len(raw) == 0 {
		return nil, ErrValidation
	}
	levels := make([]Level, 0, len(raw))
	for _, r := range raw {
		level, err := ParseLevel(r)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

var nonNamePattern = regexp.MustCompile(`[^a-zA-Z\s]`)

// ValidName reports whether a display name contains only letters and spaces.
func ValidName(name string) bool {
	return name != "" && !nonNamePattern.MatchString(name)
}

// FormatName capitalizes each word of a display name.
func FormatName(name string) string {
	parts := strings.Fields(name)
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}

// Permission grants one level to one identity. Unique per
// (identity_id, level); re-adding an existing level is a no-op.
type Permission struct {
	ID         int64     `json:"id"`
	IdentityID int64     `json:"identity_id"`
	Level      Level     `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}

// Outcome of an access decision.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
)

// AccessRequest é um registro de auditoria imutável de uma decisão de
// acesso. IdentityID fica nulo quando a identidade foi removida depois.
type AccessRequest struct {
	ID            int64     `json:"id"`
	IdentityID    *int64    `json:"identity_id,omitempty"`
	RequiredLevel Level     `json:"required_level"`
	Outcome       Outcome   `json:"outcome"`
	FacialData    []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// AccessLog annotates one AccessRequest. Every request has at least one
// log once the decision engine completes.
type AccessLog struct {
	ID              int64     `json:"id"`
	AccessRequestID int64     `json:"access_request_id"`
	Details         string    `json:"details"`
	CreatedAt       time.Time `json:"created_at"`
}
