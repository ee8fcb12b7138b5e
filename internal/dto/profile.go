package dto

import "time"

type ProfileResponse struct {
	ProfileID       string    `json:"profile_id" example:"3f8e2a4c-5d1b-4e7a-9c0f-2b6d8e1a7c44"`
	DisplayName     string    `json:"display_name,omitempty" example:"Alice"`
	Theme           string    `json:"theme" example:"dark"`
	TrackerDomain   string    `json:"tracker_domain,omitempty" example:"acme.atlassian.net"`
	TrackerEmail    string    `json:"tracker_email,omitempty" example:"alice@acme.com"`
	HasTrackerToken bool      `json:"has_tracker_token" example:"true"`
	RecentRooms     []string  `json:"recent_rooms" example:"AB12CD34"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpdateProfileRequest patches a profile; nil fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName   *string `json:"display_name,omitempty" example:"Alice"`
	Theme         *string `json:"theme,omitempty" example:"dark" enums:"light,dark"`
	TrackerDomain *string `json:"tracker_domain,omitempty" example:"acme.atlassian.net"`
	TrackerEmail  *string `json:"tracker_email,omitempty" example:"alice@acme.com"`
	TrackerToken  *string `json:"tracker_token,omitempty" example:"ATATT3x..."`
	RecentRoom    *string `json:"recent_room,omitempty" example:"AB12CD34"`
}
