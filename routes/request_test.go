package routes

import (
	"fmt"
	"net/http"
	"testing"

	"plateshare-server/models"
	"plateshare-server/storage"
)

func TestCreateRequestHappyPath(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Rice Bowl", "Park")

	resp := doJSON(t, app, http.MethodPost, "/api/requests", signAccessToken(requester), map[string]interface{}{
		"foodId":    food.ID,
		"location":  "Park",
		"reason":    "need",
		"contactNo": "123",
	})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created models.FoodRequest
	decodeJSON(t, resp, &created)

	if created.Status != models.RequestStatusPending {
		t.Errorf("new request status = %q, want pending", created.Status)
	}
	if created.FoodID != food.ID {
		t.Errorf("request references food %d, want %d", created.FoodID, food.ID)
	}
	if created.RequesterEmail != requester.Email {
		t.Errorf("requester snapshot = %q, want %q", created.RequesterEmail, requester.Email)
	}
	if created.DonorEmail != donor.Email {
		t.Errorf("donor denormalization = %q, want %q", created.DonorEmail, donor.Email)
	}
}

func TestCreateRequestOwnListingRefused(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	food := createTestFood(t, donor, "Bread", "Station")

	resp := doJSON(t, app, http.MethodPost, "/api/requests", signAccessToken(donor), map[string]interface{}{
		"foodId":    food.ID,
		"location":  "Station",
		"reason":    "mine",
		"contactNo": "123",
	})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for self-request, got %d", resp.Code)
	}

	var count int64
	storage.DB.Model(&models.FoodRequest{}).Where("food_id = ?", food.ID).Count(&count)
	if count != 0 {
		t.Fatalf("self-request must not create a row, found %d", count)
	}
}

func TestCreateRequestUnavailableListingRefused(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Soup", "Park")
	storage.DB.Model(&food).Update("status", models.FoodStatusDonated)

	resp := doJSON(t, app, http.MethodPost, "/api/requests", signAccessToken(requester), map[string]interface{}{
		"foodId":    food.ID,
		"location":  "Park",
		"reason":    "need",
		"contactNo": "123",
	})

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unavailable listing, got %d", resp.Code)
	}

	var count int64
	storage.DB.Model(&models.FoodRequest{}).Where("food_id = ?", food.ID).Count(&count)
	if count != 0 {
		t.Fatalf("request against donated listing must not be created, found %d", count)
	}
}

func TestCreateRequestRequiresAuth(t *testing.T) {
	app := buildTestApp()

	resp := doJSON(t, app, http.MethodPost, "/api/requests", "", map[string]interface{}{
		"foodId": 1, "location": "x", "reason": "y", "contactNo": "z",
	})
	if resp.Code == http.StatusCreated || resp.Code == http.StatusOK {
		t.Fatalf("expected rejection without token, got %d", resp.Code)
	}
}

func createPendingRequest(t *testing.T, requester models.User, food models.Food) models.FoodRequest {
	t.Helper()
	request := models.FoodRequest{
		FoodID:         food.ID,
		RequesterID:    requester.ID,
		Location:       "Park",
		Reason:         "need",
		ContactNo:      "123",
		Status:         models.RequestStatusPending,
		RequesterName:  requester.Name,
		RequesterEmail: requester.Email,
		DonorEmail:     food.DonorEmail,
	}
	if err := storage.DB.Create(&request).Error; err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return request
}

func TestResolveAcceptDonatesFood(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Pasta", "Park")
	request := createPendingRequest(t, requester, food)

	resp := doJSON(t, app, http.MethodPatch,
		fmt.Sprintf("/api/requests/%d/status", request.ID),
		signAccessToken(donor), map[string]string{"status": "accepted"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var storedRequest models.FoodRequest
	storage.DB.First(&storedRequest, request.ID)
	if storedRequest.Status != models.RequestStatusAccepted {
		t.Errorf("request status = %q, want accepted", storedRequest.Status)
	}

	var storedFood models.Food
	storage.DB.First(&storedFood, food.ID)
	if storedFood.Status != models.FoodStatusDonated {
		t.Errorf("food status = %q, want Donated after accept", storedFood.Status)
	}
}

func TestResolveRejectLeavesFoodAvailable(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Salad", "Park")
	request := createPendingRequest(t, requester, food)

	resp := doJSON(t, app, http.MethodPatch,
		fmt.Sprintf("/api/requests/%d/status", request.ID),
		signAccessToken(donor), map[string]string{"status": "rejected"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var storedRequest models.FoodRequest
	storage.DB.First(&storedRequest, request.ID)
	if storedRequest.Status != models.RequestStatusRejected {
		t.Errorf("request status = %q, want rejected", storedRequest.Status)
	}

	var storedFood models.Food
	storage.DB.First(&storedFood, food.ID)
	if storedFood.Status != models.FoodStatusAvailable {
		t.Errorf("reject must not change food status, got %q", storedFood.Status)
	}
}

func TestResolveTerminalRequestRefused(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Curry", "Park")
	request := createPendingRequest(t, requester, food)
	storage.DB.Model(&request).Update("status", models.RequestStatusRejected)

	resp := doJSON(t, app, http.MethodPatch,
		fmt.Sprintf("/api/requests/%d/status", request.ID),
		signAccessToken(donor), map[string]string{"status": "accepted"})

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for terminal request, got %d", resp.Code)
	}

	var storedRequest models.FoodRequest
	storage.DB.First(&storedRequest, request.ID)
	if storedRequest.Status != models.RequestStatusRejected {
		t.Errorf("terminal status changed to %q", storedRequest.Status)
	}
}

func TestResolveByNonDonorRefused(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Stew", "Park")
	request := createPendingRequest(t, requester, food)

	resp := doJSON(t, app, http.MethodPatch,
		fmt.Sprintf("/api/requests/%d/status", request.ID),
		signAccessToken(requester), map[string]string{"status": "accepted"})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-donor resolve, got %d", resp.Code)
	}
}

func TestResolveInvalidStatusRejected(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Tacos", "Park")
	request := createPendingRequest(t, requester, food)

	resp := doJSON(t, app, http.MethodPatch,
		fmt.Sprintf("/api/requests/%d/status", request.ID),
		signAccessToken(donor), map[string]string{"status": "pending"})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid resolve status, got %d", resp.Code)
	}
}

func TestGetFoodRequestsOwnerOnly(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	food := createTestFood(t, donor, "Noodles", "Park")
	createPendingRequest(t, requester, food)

	path := fmt.Sprintf("/api/requests/food/%d", food.ID)

	resp := doJSON(t, app, http.MethodGet, path, signAccessToken(requester), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodGet, path, signAccessToken(donor), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", resp.Code)
	}

	var requests []models.FoodRequest
	decodeJSON(t, resp, &requests)
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
}

func TestGetMyRequestsScopedToCaller(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requesterA := createTestUser(t, uniqueEmail(t, "ra"))
	requesterB := createTestUser(t, uniqueEmail(t, "rb"))
	food := createTestFood(t, donor, "Dal", "Park")
	createPendingRequest(t, requesterA, food)

	resp := doJSON(t, app, http.MethodGet, "/api/requests/my", signAccessToken(requesterB), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var requests []models.FoodRequest
	decodeJSON(t, resp, &requests)
	if len(requests) != 0 {
		t.Fatalf("other users' requests leaked: %d", len(requests))
	}

	resp = doJSON(t, app, http.MethodGet, "/api/requests/my", signAccessToken(requesterA), nil)
	decodeJSON(t, resp, &requests)
	if len(requests) != 1 {
		t.Fatalf("expected requester's own request, got %d", len(requests))
	}
}

func TestGetDonorRequestsAggregatesListings(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	requester := createTestUser(t, uniqueEmail(t, "requester"))
	foodA := createTestFood(t, donor, "Idli", "Park")
	foodB := createTestFood(t, donor, "Dosa", "Station")
	createPendingRequest(t, requester, foodA)
	createPendingRequest(t, requester, foodB)

	resp := doJSON(t, app, http.MethodGet, "/api/requests/donor", signAccessToken(donor), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var requests []models.FoodRequest
	decodeJSON(t, resp, &requests)
	if len(requests) != 2 {
		t.Fatalf("expected requests across both listings, got %d", len(requests))
	}
}
