package services

import (
	"strings"

	"plateshare-server/models"
)

// Precondition guards for the request workflow. Handlers evaluate these
// before every mutation, and detail reads surface them as affordance flags
// so clients can disable the matching controls. The client-side check is a
// UX convenience; these are the authoritative server-side checks.

// CanRequestFood reports whether the viewer may submit a pickup request
// against the food: authenticated, not the donor, and the listing still
// Available.
func CanRequestFood(viewerEmail string, food *models.Food) bool {
	if viewerEmail == "" || food == nil {
		return false
	}
	if strings.EqualFold(viewerEmail, food.DonorEmail) {
		return false
	}
	return food.IsAvailable()
}

// CanResolveRequest reports whether the viewer may resolve the request:
// only the donor of the referenced food, and only while the request is
// still pending. Accepted and rejected are terminal.
func CanResolveRequest(viewerEmail string, request *models.FoodRequest, food *models.Food) bool {
	if viewerEmail == "" || request == nil || food == nil {
		return false
	}
	if !strings.EqualFold(viewerEmail, food.DonorEmail) {
		return false
	}
	return !request.IsTerminal()
}

// CanEditFood reports whether the viewer owns the listing.
func CanEditFood(viewerEmail string, food *models.Food) bool {
	if viewerEmail == "" || food == nil {
		return false
	}
	return strings.EqualFold(viewerEmail, food.DonorEmail)
}
