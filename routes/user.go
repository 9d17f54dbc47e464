package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"plateshare-server/models"
	"plateshare-server/storage"
	"plateshare-server/utils"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

var ctxBackground = context.Background()

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

type RegisterUserInput struct {
	Name     string `json:"name" validate:"required,max=256"`
	Email    string `json:"email" validate:"required,max=256,email"`
	Password string `json:"password" validate:"required,min=8,max=256"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url"`
}

func Register(ctx iris.Context) {
	var userInput RegisterUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var newUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&newUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser = models.User{
		Name:        userInput.Name,
		Email:       strings.ToLower(userInput.Email),
		Password:    hashedPassword,
		PhotoURL:    userInput.PhotoURL,
		SocialLogin: false}

	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnUser(newUser, ctx)
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingUser models.User
	errorMsg := "Invalid email or password."
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if existingUser.SocialLogin {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", "Social Login Account", ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	returnUser(existingUser, ctx)
}

type GoogleUserInput struct {
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
}

type googleUserInfo struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// GoogleLoginOrSignUp handles the federated flow. An ID token is verified
// against Google's JWKS; an OAuth access token is exchanged for the userinfo
// profile instead. Either way the account is created on first sight.
func GoogleLoginOrSignUp(ctx iris.Context) {
	var userInput GoogleUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var info googleUserInfo
	switch {
	case userInput.IDToken != "":
		verified, verifyErr := verifyGoogleIDToken(userInput.IDToken)
		if verifyErr != nil {
			utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid Google token.", ctx)
			return
		}
		info = *verified
	case userInput.AccessToken != "":
		fetched, fetchErr := fetchGoogleUserInfo(userInput.AccessToken)
		if fetchErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		info = *fetched
	default:
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "idToken or accessToken is required", ctx)
		return
	}

	if info.Email == "" {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Google account has no email.", ctx)
		return
	}

	name := info.Name
	if name == "" {
		name = strings.TrimSpace(info.GivenName + " " + info.FamilyName)
	}

	var user models.User
	userExists, userExistsErr := getAndHandleUserExists(&user, info.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		user = models.User{
			Name:           name,
			Email:          strings.ToLower(info.Email),
			PhotoURL:       info.Picture,
			SocialLogin:    true,
			SocialProvider: "Google"}
		if err := storage.DB.Create(&user).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		returnUser(user, ctx)
		return
	}

	if user.SocialLogin && user.SocialProvider == "Google" {
		returnUser(user, ctx)
		return
	}

	utils.CreateEmailAlreadyRegistered(ctx)
}

func verifyGoogleIDToken(idToken string) (*googleUserInfo, error) {
	res, err := http.Get(googleJWKSURL)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	jwks, err := keyfunc.NewJSON(body)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(idToken, jwks.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid google id token")
	}

	claims := token.Claims.(jwt.MapClaims)
	return &googleUserInfo{
		Email:   fmt.Sprint(claims["email"]),
		Name:    fmt.Sprint(claims["name"]),
		Picture: fmt.Sprint(claims["picture"]),
	}, nil
}

func fetchGoogleUserInfo(accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequest(http.MethodGet, "https://www.googleapis.com/userinfo/v2/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetProfile returns the authenticated user's account.
func GetProfile(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(user)
}

type AlterPushTokenInput struct {
	Token  string `json:"token" validate:"required"`
	Remove bool   `json:"remove"`
}

// AlterPushToken registers or removes an Expo push token for the user.
func AlterPushToken(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input AlterPushTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var tokens []string
	if user.PushTokens != nil {
		json.Unmarshal(user.PushTokens, &tokens)
	}

	updated := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		if t != input.Token {
			updated = append(updated, t)
		}
	}
	if !input.Remove {
		updated = append(updated, input.Token)
	}

	raw, err := json.Marshal(updated)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	user.PushTokens = datatypes.JSON(raw)

	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(user)
}

type AllowsNotificationsInput struct {
	AllowsNotifications *bool `json:"allowsNotifications" validate:"required"`
}

// AllowsNotifications toggles push delivery for the user.
func AllowsNotifications(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var input AllowsNotificationsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	user.AllowsNotifications = input.AllowsNotifications
	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(user)
}

// RefreshToken rotates a refresh token for a new access/refresh pair. Spent
// tokens are deleted from Redis so each one is redeemable once.
func RefreshToken(ctx iris.Context) {
	token := jsonWT.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)

	if storage.Redis == nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	validToken, tokenErr := storage.Redis.Get(ctx.Request().Context(), tokenStr).Result()
	if tokenErr != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if validToken != "true" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	storage.Redis.Del(ctx.Request().Context(), tokenStr)

	userID, parseErr := strconv.ParseUint(token.StandardClaims.Subject, 10, 32)
	if parseErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, uint(userID)).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	tokenPair, tokenPairErr := createAndTrackTokenPair(user)
	if tokenPairErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func getAndHandleUserExists(user *models.User, email string) (bool, error) {
	userExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(&user)
	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}
	return userExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func createAndTrackTokenPair(user models.User) (*jsonWT.TokenPair, error) {
	tokenPair, err := utils.CreateTokenPair(utils.AccessToken{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		PhotoURL: user.PhotoURL,
	})
	if err != nil {
		return nil, err
	}

	// Redis is optional in dev/test; without it refresh tokens are simply
	// not redeemable.
	if storage.Redis != nil {
		err = storage.Redis.Set(
			ctxBackground, string(tokenPair.RefreshToken), "true",
			utils.RefreshTokenTTL+5*time.Minute).Err()
		if err != nil {
			return nil, err
		}
	}

	return tokenPair, nil
}

func returnUser(user models.User, ctx iris.Context) {
	tokenPair, tokenErr := createAndTrackTokenPair(user)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"photoURL":     user.PhotoURL,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}
