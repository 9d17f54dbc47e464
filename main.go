package main

import (
	"os"

	"plateshare-server/routes"
	"plateshare-server/storage"
	"plateshare-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()
	storage.InitializeImageHost()

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the PlateShare web client
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)
	app.Use(utils.MetricsMiddleware)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Get("/profile", accessTokenVerifierMiddleware, routes.GetProfile)
		user.Patch("/pushtoken", accessTokenVerifierMiddleware, routes.AlterPushToken)
		user.Patch("/settings/notifications", accessTokenVerifierMiddleware, routes.AllowsNotifications)
	}

	foods := app.Party("/api/foods")
	{
		foods.Get("/", routes.GetFoods)
		foods.Get("/featured", routes.GetFeaturedFoods)
		foods.Get("/locations", routes.GetFoodLocations)
		foods.Get("/my", accessTokenVerifierMiddleware, routes.GetMyFoods)
		foods.Get("/{id:uint}", accessTokenVerifierMiddleware, routes.GetFood)
		foods.Post("/", accessTokenVerifierMiddleware, routes.CreateFood)
		foods.Patch("/{id:uint}", accessTokenVerifierMiddleware, routes.UpdateFood)
		foods.Patch("/{id:uint}/status", accessTokenVerifierMiddleware, routes.UpdateFoodStatus)
		foods.Delete("/{id:uint}", accessTokenVerifierMiddleware, routes.DeleteFood)
	}

	requests := app.Party("/api/requests", accessTokenVerifierMiddleware)
	{
		requests.Post("/", routes.CreateRequest)
		requests.Get("/my", routes.GetMyRequests)
		requests.Get("/donor", routes.GetDonorRequests)
		requests.Get("/food/{foodId:uint}", routes.GetFoodRequests)
		requests.Patch("/{id:uint}/status", routes.UpdateRequestStatus)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", routes.GetMyNotifications)
		notifications.Post("/read", routes.MarkNotificationsRead)
	}

	app.Post("/api/upload", accessTokenVerifierMiddleware, routes.UploadImage)
	app.Post("/api/refresh", refreshTokenVerifierMiddleware, routes.RefreshToken)
	app.Get("/metrics", utils.MetricsHandler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	utils.Log.WithField("addr", addr).Info("server starting")

	if err := app.Listen(addr); err != nil {
		utils.Log.WithError(err).Fatal("server failed")
	}
}
