package models

import "time"

// InvitationStatus represents the lifecycle state of an invitation
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRevoked  InvitationStatus = "revoked"
)

// Invitation invites an email address to join a household.
type Invitation struct {
	Base
	HouseholdID uint             `gorm:"not null;index" json:"household_id"`
	InviterID   uint             `gorm:"not null" json:"inviter_id"`
	Email       string           `gorm:"not null" json:"email"`
	Token       string           `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Status      InvitationStatus `gorm:"not null;default:pending" json:"status"`
	ExpiresAt   time.Time        `gorm:"not null" json:"expires_at"`
}
