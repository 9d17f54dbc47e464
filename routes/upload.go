package routes

import (
	"errors"

	"plateshare-server/storage"
	"plateshare-server/utils"

	"github.com/kataras/iris/v12"
)

type uploadInput struct {
	Data string `json:"data" validate:"required"` // base64 data URL or raw base64
	Name string `json:"name"`                     // optional public name
}

// UploadImage forwards a base64 image to the external image host and returns
// the hosted URL. Clients upload before creating a listing, so a failure
// here means no listing is created without an image.
func UploadImage(ctx iris.Context) {
	var in uploadInput
	if err := ctx.ReadJSON(&in); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	url, err := storage.UploadBase64Image(in.Data, in.Name)
	if err != nil {
		if errors.Is(err, storage.ErrImageHostNotConfigured) {
			utils.CreateError(iris.StatusServiceUnavailable, "Upload Error", "Image hosting config missing.", ctx)
			return
		}
		utils.CreateError(iris.StatusBadGateway, "Upload Error", "Image upload failed.", ctx)
		return
	}

	ctx.JSON(iris.Map{"url": url})
}
