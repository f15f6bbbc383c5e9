package models

import "time"

// Favorite item types
const (
	ItemTypeTrial        = "trial"
	ItemTypePublication  = "publication"
	ItemTypeExpert       = "expert"
	ItemTypeCollaborator = "collaborator"
)

var validItemTypes = map[string]bool{
	ItemTypeTrial:        true,
	ItemTypePublication:  true,
	ItemTypeExpert:       true,
	ItemTypeCollaborator: true,
}

// IsValidItemType checks whether t can be favorited
func IsValidItemType(t string) bool {
	return validItemTypes[t]
}

// Favorite is unique per (UserID, ItemType, ItemID)
type Favorite struct {
	ID        string
	UserID    string
	ItemType  string
	ItemID    string
	CreatedAt time.Time
}
