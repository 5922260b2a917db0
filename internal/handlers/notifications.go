package handlers

import (
	"strconv"

	"github.com/arnold/esg-pledges-api/internal/middleware"
	"github.com/arnold/esg-pledges-api/internal/services"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	store store.Notifications
	users *services.UserService
}

func NewNotificationHandler(s store.Notifications, users *services.UserService) *NotificationHandler {
	return &NotificationHandler{store: s, users: users}
}

// List returns paginated notifications for the current user
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	result, err := h.store.ListNotifications(c.UserContext(), middleware.GetUserID(c), page, limit)
	if err != nil {
		return err
	}
	return ok(c, result)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid notification ID")
	}
	if err := h.store.MarkNotificationRead(c.UserContext(), middleware.GetUserID(c), id); err != nil {
		return err
	}
	return message(c, "Notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	if err := h.store.MarkAllNotificationsRead(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return err
	}
	return message(c, "All notifications marked as read")
}

// RegisterDeviceToken saves the FCM token used for push notifications.
func (h *NotificationHandler) RegisterDeviceToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.users.RegisterDevice(c.UserContext(), middleware.GetUserID(c), req.Token); err != nil {
		return err
	}
	return message(c, "Device token registered")
}
