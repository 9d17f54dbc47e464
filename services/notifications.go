package services

import (
	"encoding/json"
	"fmt"
	"strconv"

	"plateshare-server/models"
	"plateshare-server/storage"
	"plateshare-server/utils"
)

// NotificationService records workflow events as inbox rows and fans them
// out to the user's registered push tokens.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData is the push payload used by the client for deep linking.
type NotificationData struct {
	Type      string `json:"type"`
	FoodID    string `json:"foodId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user %d has notifications disabled or no tokens", userID)
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %w", err)
	}

	return tokens, nil
}

// SendNotificationToUser pushes to every registered token. Token-level
// failures are logged and the last error returned; the inbox row written by
// the callers is the durable record either way.
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		utils.Log.WithError(err).WithField("userID", userID).Debug("skipping push delivery")
		return err
	}

	dataMap := map[string]string{
		"type":      data.Type,
		"foodId":    data.FoodID,
		"requestId": data.RequestID,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			utils.Log.WithError(err).WithField("userID", userID).Warn("push send failed")
			lastError = err
		}
	}

	return lastError
}

// NotifyNewRequest tells the donor a pickup request arrived for their food.
func (ns *NotificationService) NotifyNewRequest(request *models.FoodRequest, food *models.Food) {
	title := "New Pickup Request"
	message := fmt.Sprintf("%s requested %q", request.RequesterName, food.Name)

	notification := models.Notification{
		UserID:  food.DonorID,
		Title:   title,
		Message: message,
		Type:    "food_request",
		RefID:   request.ID,
		RefType: "request",
	}
	if err := storage.DB.Create(&notification).Error; err != nil {
		utils.Log.WithError(err).Warn("failed to record request notification")
	}

	ns.SendNotificationToUser(food.DonorID, title, message, NotificationData{
		Type:      "food_request",
		FoodID:    strconv.FormatUint(uint64(food.ID), 10),
		RequestID: strconv.FormatUint(uint64(request.ID), 10),
	})
}

// NotifyRequestResolved tells the requester the donor's decision.
func (ns *NotificationService) NotifyRequestResolved(request *models.FoodRequest, food *models.Food) {
	title := "Request " + request.Status
	message := fmt.Sprintf("Your request for %q was %s", food.Name, request.Status)

	notification := models.Notification{
		UserID:  request.RequesterID,
		Title:   title,
		Message: message,
		Type:    "request_resolved",
		RefID:   request.ID,
		RefType: "request",
	}
	if err := storage.DB.Create(&notification).Error; err != nil {
		utils.Log.WithError(err).Warn("failed to record resolve notification")
	}

	ns.SendNotificationToUser(request.RequesterID, title, message, NotificationData{
		Type:      "request_resolved",
		FoodID:    strconv.FormatUint(uint64(food.ID), 10),
		RequestID: strconv.FormatUint(uint64(request.ID), 10),
	})
}
