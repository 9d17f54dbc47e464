package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	FoodStatusAvailable = "Available"
	FoodStatusDonated   = "Donated"
)

// Food is a donation listing. The donor's display fields are snapshotted at
// creation time so listings render without a user join.
type Food struct {
	gorm.Model
	DonorID        uint      `json:"donorID" gorm:"index"`
	Name           string    `json:"name"`
	ImageURL       string    `json:"imageUrl"`
	Quantity       string    `json:"quantity"`
	PickupLocation string    `json:"pickupLocation"`
	ExpireDate     time.Time `json:"expireDate"`
	Notes          string    `json:"notes"`
	Status         string    `json:"status" gorm:"type:varchar(32);default:'Available'"`

	DonorName     string `json:"donorName"`
	DonorEmail    string `json:"donorEmail" gorm:"index"`
	DonorPhotoURL string `json:"donorPhotoURL"`
}

// IsAvailable reports whether the listing can still be requested. Status is
// stored capitalized but compared case-insensitively.
func (f *Food) IsAvailable() bool {
	return strings.EqualFold(f.Status, FoodStatusAvailable)
}

// HasExpireDate reports whether the donor supplied an expiry date. A zero
// time means the listing has none.
func (f *Food) HasExpireDate() bool {
	return !f.ExpireDate.IsZero()
}
