package routes

import (
	"strconv"
	"strings"
	"time"

	"plateshare-server/models"
	"plateshare-server/services"
	"plateshare-server/storage"
	"plateshare-server/utils"

	"github.com/kataras/iris/v12"
)

const featuredFoodCount = 6

// GetFoods lists listings, optionally filtered by status, name query, pickup
// location and expiry sort. The Available base list is served read-through
// from the cache; the filter/sort view is derived per request.
func GetFoods(ctx iris.Context) {
	status := ctx.URLParamDefault("status", "")

	filter := services.CatalogFilter{
		Query:    ctx.URLParamDefault("q", ""),
		Location: ctx.URLParamDefault("location", ""),
		Sort:     services.ParseSortOrder(ctx.URLParamDefault("sort", "")),
	}

	var foods []models.Food

	cacheable := strings.EqualFold(status, models.FoodStatusAvailable)
	if cacheable && services.CacheGet(services.AvailableFoodsKey, &foods) {
		ctx.JSON(services.FilterFoods(foods, filter))
		return
	}

	query := storage.DB.Order("created_at DESC")
	if status != "" {
		query = query.Where("LOWER(status) = LOWER(?)", status)
	}
	if err := query.Find(&foods).Error; err != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", err.Error(), ctx)
		return
	}

	if cacheable {
		services.CacheSet(services.AvailableFoodsKey, foods)
	}

	ctx.JSON(services.FilterFoods(foods, filter))
}

// GetFeaturedFoods returns the most recent Available listings for the
// landing view.
func GetFeaturedFoods(ctx iris.Context) {
	var foods []models.Food
	if services.CacheGet(services.FeaturedFoodsKey, &foods) {
		ctx.JSON(foods)
		return
	}

	res := storage.DB.
		Where("LOWER(status) = LOWER(?)", models.FoodStatusAvailable).
		Order("created_at DESC").
		Limit(featuredFoodCount).
		Find(&foods)
	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	services.CacheSet(services.FeaturedFoodsKey, foods)
	ctx.JSON(foods)
}

// GetFoodLocations returns the distinct non-empty pickup locations for the
// catalog's location filter dropdown.
func GetFoodLocations(ctx iris.Context) {
	var locations []string
	res := storage.DB.Model(&models.Food{}).
		Where("pickup_location <> ''").
		Distinct().
		Order("pickup_location ASC").
		Pluck("pickup_location", &locations)
	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	ctx.JSON(locations)
}

// GetMyFoods lists the authenticated donor's own listings.
func GetMyFoods(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var foods []models.Food
	key := services.MyFoodsKey(claims.Email)
	if services.CacheGet(key, &foods) {
		ctx.JSON(foods)
		return
	}

	res := storage.DB.
		Where("LOWER(donor_email) = LOWER(?)", claims.Email).
		Order("created_at DESC").
		Find(&foods)
	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	services.CacheSet(key, foods)
	ctx.JSON(foods)
}

// GetFood returns a single listing with the viewer's affordance flags, plus
// the pending request count when the viewer is the donor.
func GetFood(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := utils.GetClaims(ctx)

	var food models.Food
	if !services.CacheGet(services.FoodKey(parseUintParam(id)), &food) {
		if err := storage.DB.First(&food, id).Error; err != nil {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Food not found", ctx)
			return
		}
		services.CacheSet(services.FoodKey(food.ID), food)
	}

	response := iris.Map{
		"food":             food,
		"viewerCanRequest": services.CanRequestFood(claims.Email, &food),
		"viewerCanEdit":    services.CanEditFood(claims.Email, &food),
	}

	if services.CanEditFood(claims.Email, &food) {
		var pending int64
		storage.DB.Model(&models.FoodRequest{}).
			Where("food_id = ? AND status = ?", food.ID, models.RequestStatusPending).
			Count(&pending)
		response["pendingRequests"] = pending
	}

	ctx.JSON(response)
}

type CreateFoodInput struct {
	Name           string `json:"name" validate:"required,max=256"`
	ImageURL       string `json:"imageUrl" validate:"required,url"`
	Quantity       string `json:"quantity" validate:"required,max=256"`
	PickupLocation string `json:"pickupLocation" validate:"required,max=256"`
	ExpireDate     string `json:"expireDate" validate:"required"`
	Notes          string `json:"notes"`
}

// CreateFood persists a new listing. Status is forced to Available and the
// donor snapshot is stamped from the session, never trusted from the body.
func CreateFood(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input CreateFoodInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	expireDate, err := parseExpireDate(input.ExpireDate)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "expireDate must be a calendar date", ctx)
		return
	}
	if expireDate.Before(todayUTC()) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "expireDate must not be before today", ctx)
		return
	}

	food := models.Food{
		DonorID:        claims.ID,
		Name:           input.Name,
		ImageURL:       input.ImageURL,
		Quantity:       input.Quantity,
		PickupLocation: input.PickupLocation,
		ExpireDate:     expireDate,
		Notes:          input.Notes,
		Status:         models.FoodStatusAvailable,
		DonorName:      claims.Name,
		DonorEmail:     claims.Email,
		DonorPhotoURL:  claims.PhotoURL,
	}

	if err := storage.DB.Create(&food).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Invalidate(services.MutationFoodCreated, services.MutationScope{
		FoodID:     food.ID,
		DonorEmail: food.DonorEmail,
	})

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(food)
}

type UpdateFoodInput struct {
	Name           *string `json:"name" validate:"omitempty,max=256"`
	ImageURL       *string `json:"imageUrl" validate:"omitempty,url"`
	Quantity       *string `json:"quantity" validate:"omitempty,max=256"`
	PickupLocation *string `json:"pickupLocation" validate:"omitempty,max=256"`
	ExpireDate     *string `json:"expireDate"`
	Notes          *string `json:"notes"`
}

// UpdateFood applies a partial field update to an owned listing. Status is
// not editable through this path.
func UpdateFood(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := utils.GetClaims(ctx)

	var food models.Food
	if err := storage.DB.First(&food, id).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Food not found", ctx)
		return
	}

	if !services.CanEditFood(claims.Email, &food) {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateFoodInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Name != nil {
		food.Name = *input.Name
	}
	if input.ImageURL != nil {
		food.ImageURL = *input.ImageURL
	}
	if input.Quantity != nil {
		food.Quantity = *input.Quantity
	}
	if input.PickupLocation != nil {
		food.PickupLocation = *input.PickupLocation
	}
	if input.ExpireDate != nil {
		expireDate, err := parseExpireDate(*input.ExpireDate)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "expireDate must be a calendar date", ctx)
			return
		}
		food.ExpireDate = expireDate
	}
	if input.Notes != nil {
		food.Notes = *input.Notes
	}

	if err := storage.DB.Save(&food).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Invalidate(services.MutationFoodUpdated, services.MutationScope{
		FoodID:     food.ID,
		DonorEmail: food.DonorEmail,
	})

	ctx.JSON(food)
}

type UpdateFoodStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// UpdateFoodStatus transitions a listing between Available and Donated.
// Accepting a request does this implicitly; the endpoint exists for the
// donor's explicit status control.
func UpdateFoodStatus(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := utils.GetClaims(ctx)

	var food models.Food
	if err := storage.DB.First(&food, id).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Food not found", ctx)
		return
	}

	if !services.CanEditFood(claims.Email, &food) {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateFoodStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	status, ok := normalizeFoodStatus(input.Status)
	if !ok {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "status must be Available or Donated", ctx)
		return
	}

	food.Status = status
	if err := storage.DB.Save(&food).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Invalidate(services.MutationFoodStatusChanged, services.MutationScope{
		FoodID:     food.ID,
		DonorEmail: food.DonorEmail,
	})

	ctx.JSON(food)
}

// DeleteFood removes an owned listing.
func DeleteFood(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := utils.GetClaims(ctx)

	var food models.Food
	if err := storage.DB.First(&food, id).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Food not found", ctx)
		return
	}

	if !services.CanEditFood(claims.Email, &food) {
		utils.CreateForbidden(ctx)
		return
	}

	if err := storage.DB.Delete(&food).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Invalidate(services.MutationFoodDeleted, services.MutationScope{
		FoodID:     food.ID,
		DonorEmail: food.DonorEmail,
	})

	ctx.JSON(iris.Map{"deleted": food.ID})
}

// normalizeFoodStatus canonicalizes a status string case-insensitively.
func normalizeFoodStatus(s string) (string, bool) {
	switch {
	case strings.EqualFold(s, models.FoodStatusAvailable):
		return models.FoodStatusAvailable, true
	case strings.EqualFold(s, models.FoodStatusDonated):
		return models.FoodStatusDonated, true
	default:
		return "", false
	}
}

// parseExpireDate accepts a plain calendar date or a full timestamp and
// keeps only the date part, midnight UTC.
func parseExpireDate(s string) (time.Time, error) {
	if len(s) >= 10 {
		if d, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return d, nil
		}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}

func todayUTC() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func parseUintParam(s string) uint {
	v, _ := strconv.ParseUint(s, 10, 64)
	return uint(v)
}
