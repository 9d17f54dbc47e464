package models

import (
	"gorm.io/gorm"

	"golang.org/x/exp/slices"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// FoodRequest is a pickup request against a Food listing. Requester display
// fields are snapshotted so the donor's request list renders without a user
// join, and the donor's email is denormalized for the donor-side aggregate.
type FoodRequest struct {
	gorm.Model
	FoodID      uint   `json:"foodID" gorm:"index"`
	RequesterID uint   `json:"requesterID" gorm:"index"`
	Location    string `json:"location"`
	Reason      string `json:"reason"`
	ContactNo   string `json:"contactNo"`
	Status      string `json:"status" gorm:"type:varchar(32);default:'pending'"`

	RequesterName     string `json:"requesterName"`
	RequesterEmail    string `json:"requesterEmail" gorm:"index"`
	RequesterPhotoURL string `json:"requesterPhotoURL"`
	DonorEmail        string `json:"donorEmail" gorm:"index"`

	Food *Food `json:"food,omitempty" gorm:"foreignKey:FoodID"`
}

// IsTerminal reports whether the request has already been resolved. Terminal
// requests cannot change status again.
func (r *FoodRequest) IsTerminal() bool {
	return slices.Contains([]string{RequestStatusAccepted, RequestStatusRejected}, r.Status)
}
