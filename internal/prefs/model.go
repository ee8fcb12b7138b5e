package prefs

import (
	"errors"
	"strings"
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/tracker"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	maxRecentRooms = 5
)

var ErrInvalidTheme = errors.New("theme must be light or dark")

// Preferences are per-device settings. They never travel over the room
// channel.
type Preferences struct {
	ProfileID     string             `gorm:"primaryKey" json:"profile_id"`
	DisplayName   string             `json:"display_name,omitempty"`
	Theme         string             `gorm:"not null;default:light" json:"theme"`
	TrackerDomain string             `json:"tracker_domain,omitempty"`
	TrackerEmail  string             `json:"tracker_email,omitempty"`
	TrackerToken  string             `json:"-"`
	RecentRooms   shared.StringSlice `gorm:"type:text" json:"recent_rooms"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (p *Preferences) SetDisplayName(name string) {
	p.DisplayName = strings.TrimSpace(name)
}

func (p *Preferences) SetTheme(theme string) error {
	switch theme {
	case ThemeLight, ThemeDark:
		p.Theme = theme
		return nil
	default:
		return ErrInvalidTheme
	}
}

func (p *Preferences) HasTrackerCredentials() bool {
	return p.TrackerCredentials().Valid()
}

func (p *Preferences) TrackerCredentials() tracker.Credentials {
	return tracker.Credentials{
		Domain: p.TrackerDomain,
		Email:  p.TrackerEmail,
		Token:  p.TrackerToken,
	}
}

func (p *Preferences) SetTrackerCredentials(c tracker.Credentials) {
	p.TrackerDomain = strings.TrimSpace(c.Domain)
	p.TrackerEmail = strings.TrimSpace(c.Email)
	p.TrackerToken = c.Token
}

// RememberRoom moves roomID to the front of the recent list.
func (p *Preferences) RememberRoom(roomID string) {
	rooms := shared.StringSlice{roomID}
	for _, r := range p.RecentRooms {
		if r != roomID && len(rooms) < maxRecentRooms {
			rooms = append(rooms, r)
		}
	}
	p.RecentRooms = rooms
}
