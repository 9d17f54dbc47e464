package routes

import (
	"plateshare-server/models"
	"plateshare-server/storage"
	"plateshare-server/utils"

	"github.com/kataras/iris/v12"
)

// GetMyNotifications returns the caller's inbox, newest first.
func GetMyNotifications(ctx iris.Context) {
	claims := utils.GetClaims(ctx)
	limit := ctx.URLParamIntDefault("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []models.Notification
	res := storage.DB.
		Where("user_id = ?", claims.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications)
	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	var unread int64
	storage.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", claims.ID, false).
		Count(&unread)

	ctx.JSON(iris.Map{
		"notifications": notifications,
		"unread":        unread,
	})
}

type MarkNotificationsReadInput struct {
	IDs []uint `json:"ids"` // empty marks everything read
}

// MarkNotificationsRead clears the unread flag on the given notifications,
// or on all of the caller's notifications when no ids are sent.
func MarkNotificationsRead(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input MarkNotificationsReadInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	query := storage.DB.Model(&models.Notification{}).Where("user_id = ?", claims.ID)
	if len(input.IDs) > 0 {
		query = query.Where("id IN ?", input.IDs)
	}

	if err := query.Update("is_read", true).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true})
}
