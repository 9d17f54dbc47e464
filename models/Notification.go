package models

import "gorm.io/gorm"

// Notification is a per-user inbox row recording a workflow event, written
// alongside the push send so the client bell survives missed pushes.
type Notification struct {
	gorm.Model
	UserID  uint   `json:"userID" gorm:"index"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`    // food_request, request_resolved
	RefID   uint   `json:"refID"`   // id of the referenced entity
	RefType string `json:"refType"` // food, request
	IsRead  bool   `json:"isRead" gorm:"default:false"`
}
