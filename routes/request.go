package routes

import (
	"strings"

	"plateshare-server/models"
	"plateshare-server/services"
	"plateshare-server/storage"
	"plateshare-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateRequestInput struct {
	FoodID    uint   `json:"foodId" validate:"required"`
	Location  string `json:"location" validate:"required,max=256"`
	Reason    string `json:"reason" validate:"required,max=1024"`
	ContactNo string `json:"contactNo" validate:"required,max=32"`
}

// CreateRequest submits a pickup request against an Available listing the
// caller does not own. The requester snapshot comes from the session, never
// from the body.
func CreateRequest(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input CreateRequestInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var food models.Food
	if err := storage.DB.First(&food, input.FoodID).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Food not found", ctx)
		return
	}

	if services.CanEditFood(claims.Email, &food) {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "You cannot request your own listing.", ctx)
		return
	}
	if !services.CanRequestFood(claims.Email, &food) {
		utils.CreateError(iris.StatusConflict, "Conflict", "This food is no longer available.", ctx)
		return
	}

	request := models.FoodRequest{
		FoodID:            food.ID,
		RequesterID:       claims.ID,
		Location:          input.Location,
		Reason:            input.Reason,
		ContactNo:         input.ContactNo,
		Status:            models.RequestStatusPending,
		RequesterName:     claims.Name,
		RequesterEmail:    claims.Email,
		RequesterPhotoURL: claims.PhotoURL,
		DonorEmail:        food.DonorEmail,
	}

	if err := storage.DB.Create(&request).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Invalidate(services.MutationRequestCreated, services.MutationScope{
		FoodID:         food.ID,
		DonorEmail:     food.DonorEmail,
		RequesterEmail: claims.Email,
	})

	go services.NewNotificationService().NotifyNewRequest(&request, &food)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(request)
}

// GetMyRequests lists the caller's own pickup requests, newest first.
func GetMyRequests(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var requests []models.FoodRequest
	key := services.MyRequestsKey(claims.Email)
	if services.CacheGet(key, &requests) {
		ctx.JSON(requests)
		return
	}

	res := storage.DB.Preload("Food").
		Where("LOWER(requester_email) = LOWER(?)", claims.Email).
		Order("created_at DESC").
		Find(&requests)
	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	services.CacheSet(key, requests)
	ctx.JSON(requests)
}

// GetFoodRequests lists the requests against one listing, donor only.
func GetFoodRequests(ctx iris.Context) {
	foodID := ctx.Params().Get("foodId")
	claims := utils.GetClaims(ctx)

	var food models.Food
	if err := storage.DB.First(&food, foodID).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Food not found", ctx)
		return
	}

	if !services.CanEditFood(claims.Email, &food) {
		utils.CreateForbidden(ctx)
		return
	}

	var requests []models.FoodRequest
	key := services.FoodRequestsKey(food.ID)
	if services.CacheGet(key, &requests) {
		ctx.JSON(requests)
		return
	}

	res := storage.DB.
		Where("food_id = ?", food.ID).
		Order("created_at DESC").
		Find(&requests)
	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	services.CacheSet(key, requests)
	ctx.JSON(requests)
}

// GetDonorRequests aggregates the requests against all of the caller's
// listings.
func GetDonorRequests(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var requests []models.FoodRequest
	key := services.DonorRequestsKey(claims.Email)
	if services.CacheGet(key, &requests) {
		ctx.JSON(requests)
		return
	}

	res := storage.DB.Preload("Food").
		Where("LOWER(donor_email) = LOWER(?)", claims.Email).
		Order("created_at DESC").
		Find(&requests)
	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	services.CacheSet(key, requests)
	ctx.JSON(requests)
}

type ResolveRequestInput struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

// UpdateRequestStatus resolves a pending request. Accepting also flips the
// parent food to Donated; both writes happen in one transaction so the
// listing can never end up half-resolved. Terminal requests are refused no
// matter what the client rendered.
func UpdateRequestStatus(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := utils.GetClaims(ctx)

	var input ResolveRequestInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var request models.FoodRequest
	if err := storage.DB.Preload("Food").First(&request, id).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Request not found", ctx)
		return
	}
	if request.Food == nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Food not found", ctx)
		return
	}

	if !services.CanEditFood(claims.Email, request.Food) {
		utils.CreateForbidden(ctx)
		return
	}
	if !services.CanResolveRequest(claims.Email, &request, request.Food) {
		utils.CreateError(iris.StatusConflict, "Conflict", "Request already resolved.", ctx)
		return
	}

	status := strings.ToLower(input.Status)

	tx := storage.DB.Begin()
	if err := tx.Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	defer func() { _ = tx.Rollback().Error }()

	res := tx.Model(&models.FoodRequest{}).
		Where("id = ? AND status = ?", request.ID, models.RequestStatusPending).
		Update("status", status)
	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent resolve.
		utils.CreateError(iris.StatusConflict, "Conflict", "Request already resolved.", ctx)
		return
	}

	if status == models.RequestStatusAccepted {
		if err := tx.Model(&models.Food{}).
			Where("id = ?", request.FoodID).
			Update("status", models.FoodStatusDonated).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	request.Status = status
	if status == models.RequestStatusAccepted {
		request.Food.Status = models.FoodStatusDonated
	}

	services.Invalidate(services.MutationRequestResolved, services.MutationScope{
		FoodID:         request.FoodID,
		DonorEmail:     request.Food.DonorEmail,
		RequesterEmail: request.RequesterEmail,
	})

	go services.NewNotificationService().NotifyRequestResolved(&request, request.Food)

	ctx.JSON(request)
}
