package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// RefreshTokenTTL is how long an issued refresh token stays redeemable.
const RefreshTokenTTL = 365 * 24 * time.Hour

// AccessToken carries the session user identity: everything handlers need to
// stamp donor/requester snapshots and evaluate ownership guards.
type AccessToken struct {
	ID       uint   `json:"ID"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// CreateTokenPair signs an access/refresh pair for the given session user.
// The caller is responsible for recording the refresh token so it can be
// rotated and revoked.
func CreateTokenPair(claims AccessToken) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"), RefreshTokenTTL)

	refreshClaims := jwt.Claims{Subject: strconv.FormatUint(uint64(claims.ID), 10)}

	accessToken, err := accessTokenSigner.Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(refreshClaims)
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	return &tokenPair, nil
}

// GetClaims returns the verified access token claims for the request.
func GetClaims(ctx iris.Context) *AccessToken {
	return jwt.Get(ctx).(*AccessToken)
}
