package routes

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"plateshare-server/models"
	"plateshare-server/storage"
)

func TestCreateFoodStampsDonorAndForcesAvailable(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))

	expire := time.Now().AddDate(0, 2, 0).Format("2006-01-02")
	resp := doJSON(t, app, http.MethodPost, "/api/foods", signAccessToken(donor), map[string]string{
		"name":           "Veg Biryani",
		"imageUrl":       "https://img.example/biryani.jpg",
		"quantity":       "Serves 4 people",
		"pickupLocation": "City Hall",
		"expireDate":     expire,
		"notes":          "spicy",
	})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var food models.Food
	decodeJSON(t, resp, &food)

	if food.Status != models.FoodStatusAvailable {
		t.Errorf("new food status = %q, want Available", food.Status)
	}
	if food.DonorEmail != donor.Email || food.DonorName != donor.Name {
		t.Errorf("donor snapshot not stamped from session: %q/%q", food.DonorName, food.DonorEmail)
	}
	if food.DonorID != donor.ID {
		t.Errorf("donor id = %d, want %d", food.DonorID, donor.ID)
	}
}

func TestCreateFoodRejectsPastExpireDate(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))

	resp := doJSON(t, app, http.MethodPost, "/api/foods", signAccessToken(donor), map[string]string{
		"name":           "Old Bread",
		"imageUrl":       "https://img.example/bread.jpg",
		"quantity":       "1 loaf",
		"pickupLocation": "Park",
		"expireDate":     "2020-01-01",
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for past expire date, got %d", resp.Code)
	}
}

func TestCreateFoodMissingFieldsRejected(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))

	resp := doJSON(t, app, http.MethodPost, "/api/foods", signAccessToken(donor), map[string]string{
		"name": "No Image",
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing required fields, got %d", resp.Code)
	}
}

func TestUpdateFoodPartial(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	food := createTestFood(t, donor, "Fruit Basket", "Park")

	resp := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/foods/%d", food.ID),
		signAccessToken(donor), map[string]string{"quantity": "Serves 6 people"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var stored models.Food
	storage.DB.First(&stored, food.ID)
	if stored.Quantity != "Serves 6 people" {
		t.Errorf("quantity not updated: %q", stored.Quantity)
	}
	if stored.Name != "Fruit Basket" || stored.PickupLocation != "Park" {
		t.Errorf("untouched fields changed: %q %q", stored.Name, stored.PickupLocation)
	}
}

func TestUpdateFoodByNonOwnerRefused(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	other := createTestUser(t, uniqueEmail(t, "other"))
	food := createTestFood(t, donor, "Pastry", "Park")

	resp := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/foods/%d", food.ID),
		signAccessToken(other), map[string]string{"name": "Hijacked"})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}

	var stored models.Food
	storage.DB.First(&stored, food.ID)
	if stored.Name != "Pastry" {
		t.Errorf("non-owner edit applied: %q", stored.Name)
	}
}

func TestUpdateFoodStatusValidation(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	food := createTestFood(t, donor, "Samosa", "Park")
	path := fmt.Sprintf("/api/foods/%d/status", food.ID)

	resp := doJSON(t, app, http.MethodPatch, path, signAccessToken(donor),
		map[string]string{"status": "eaten"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", resp.Code)
	}

	// Case-insensitive acceptance, canonical storage.
	resp = doJSON(t, app, http.MethodPatch, path, signAccessToken(donor),
		map[string]string{"status": "donated"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var stored models.Food
	storage.DB.First(&stored, food.ID)
	if stored.Status != models.FoodStatusDonated {
		t.Errorf("status = %q, want Donated", stored.Status)
	}
}

func TestDeleteFoodOwnerOnly(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	other := createTestUser(t, uniqueEmail(t, "other"))
	food := createTestFood(t, donor, "Kebab", "Park")
	path := fmt.Sprintf("/api/foods/%d", food.ID)

	resp := doJSON(t, app, http.MethodDelete, path, signAccessToken(other), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner delete, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodDelete, path, signAccessToken(donor), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner delete, got %d", resp.Code)
	}

	var count int64
	storage.DB.Model(&models.Food{}).Where("id = ?", food.ID).Count(&count)
	if count != 0 {
		t.Errorf("food still present after delete")
	}
}

func TestGetFoodsFilterByQueryAndLocation(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	// Unique location keeps this test independent of rows created elsewhere.
	loc := fmt.Sprintf("Loc-%d", time.Now().UnixNano())
	createTestFood(t, donor, "Apple Pie", loc)
	createTestFood(t, donor, "Banana", loc)

	resp := doJSON(t, app, http.MethodGet,
		"/api/foods?status=Available&q=ap&location="+loc, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var foods []models.Food
	decodeJSON(t, resp, &foods)
	if len(foods) != 1 || foods[0].Name != "Apple Pie" {
		t.Fatalf("expected only Apple Pie, got %d foods", len(foods))
	}
}

func TestGetFoodViewerFlags(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	viewer := createTestUser(t, uniqueEmail(t, "viewer"))
	food := createTestFood(t, donor, "Paella", "Park")
	path := fmt.Sprintf("/api/foods/%d", food.ID)

	var payload struct {
		Food             models.Food `json:"food"`
		ViewerCanRequest bool        `json:"viewerCanRequest"`
		ViewerCanEdit    bool        `json:"viewerCanEdit"`
	}

	resp := doJSON(t, app, http.MethodGet, path, signAccessToken(viewer), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	decodeJSON(t, resp, &payload)
	if !payload.ViewerCanRequest || payload.ViewerCanEdit {
		t.Errorf("non-owner flags wrong: canRequest=%v canEdit=%v",
			payload.ViewerCanRequest, payload.ViewerCanEdit)
	}

	resp = doJSON(t, app, http.MethodGet, path, signAccessToken(donor), nil)
	decodeJSON(t, resp, &payload)
	if payload.ViewerCanRequest || !payload.ViewerCanEdit {
		t.Errorf("owner flags wrong: canRequest=%v canEdit=%v",
			payload.ViewerCanRequest, payload.ViewerCanEdit)
	}
}

func TestGetMyFoodsRequiresAuth(t *testing.T) {
	app := buildTestApp()
	donor := createTestUser(t, uniqueEmail(t, "donor"))
	createTestFood(t, donor, "Quiche", "Park")

	resp := doJSON(t, app, http.MethodGet, "/api/foods/my", "", nil)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected rejection without token, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/foods/my", signAccessToken(donor), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.Code)
	}

	var foods []models.Food
	decodeJSON(t, resp, &foods)
	if len(foods) != 1 {
		t.Fatalf("expected donor's single listing, got %d", len(foods))
	}
}
