package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"plateshare-server/utils"

	"github.com/google/uuid"
)

// Image hosting via imgbb. Configuration: IMGBB_API_KEY, IMGBB_UPLOAD_URL
// (optional, for tests).

const defaultImgbbUploadURL = "https://api.imgbb.com/1/upload"

var imageHostClient = &http.Client{Timeout: 30 * time.Second}

var (
	ErrImageHostNotConfigured = errors.New("image host credential missing")
	ErrImageUploadFailed      = errors.New("image upload failed")
)

func InitializeImageHost() {
	if os.Getenv("IMGBB_API_KEY") == "" {
		utils.Log.Warn("IMGBB_API_KEY not set, image uploads will be rejected")
	}
}

// UploadBase64Image sends a base64 image (raw or data URL) to the image host
// and returns the hosted URL. Nothing is persisted locally; a listing is only
// ever created after this has succeeded.
func UploadBase64Image(base64ImageSrc string, name string) (string, error) {
	if base64ImageSrc == "" {
		return "", ErrImageUploadFailed
	}

	// Strip a data URL prefix if present; imgbb wants the bare payload.
	payload := base64ImageSrc
	if i := strings.Index(base64ImageSrc, ","); i != -1 {
		payload = base64ImageSrc[i+1:]
	}

	apiKey := os.Getenv("IMGBB_API_KEY")
	if apiKey == "" {
		utils.Log.Error("imgbb upload refused: IMGBB_API_KEY missing")
		return "", ErrImageHostNotConfigured
	}

	endpoint := os.Getenv("IMGBB_UPLOAD_URL")
	if endpoint == "" {
		endpoint = defaultImgbbUploadURL
	}

	if name == "" {
		name = uuid.NewString()
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("image", payload); err != nil {
		return "", err
	}
	if err := form.WriteField("name", name); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, endpoint+"?key="+apiKey, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := imageHostClient.Do(req)
	if err != nil {
		utils.Log.WithError(err).Error("imgbb request failed")
		return "", ErrImageUploadFailed
	}
	defer res.Body.Close()

	var hostRes struct {
		Success bool `json:"success"`
		Data    struct {
			URL        string `json:"url"`
			DisplayURL string `json:"display_url"`
		} `json:"data"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.NewDecoder(res.Body).Decode(&hostRes); err != nil {
		utils.Log.WithError(err).Error("imgbb response parse failed")
		return "", ErrImageUploadFailed
	}

	if res.StatusCode != http.StatusOK || !hostRes.Success || hostRes.Data.URL == "" {
		utils.Log.WithFields(map[string]interface{}{
			"status":  res.StatusCode,
			"message": hostRes.Error.Message,
		}).Error("imgbb upload rejected")
		return "", ErrImageUploadFailed
	}

	return hostRes.Data.URL, nil
}
