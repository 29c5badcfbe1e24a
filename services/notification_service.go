package services

import (
	"context"
	"fmt"
	"strconv"

	"geoclock/database"
	"geoclock/models"
	"geoclock/repositories"

	"github.com/sirupsen/logrus"
)

// MessageSender delivers a plain-text chat message. Implemented by the
// Telegram bot; narrowed to an interface so the notifier is testable.
type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// NotificationService tells employees and their managers about automatic
// clock-outs. Failures are logged, never retried. The enabled flag
// suppresses all sends globally.
type NotificationService struct {
	sender  MessageSender
	manager *database.Manager
	enabled bool
}

func NewNotificationService(sender MessageSender, manager *database.Manager, enabled bool) *NotificationService {
	return &NotificationService{
		sender:  sender,
		manager: manager,
		enabled: enabled,
	}
}

// NotifyAutoClockOuts sends one message to each clocked-out employee and one
// to their reporting-line manager, when either has a linked chat.
func (ns *NotificationService) NotifyAutoClockOuts(ctx context.Context, results []models.AutoClockOutResult) {
	if !ns.enabled || len(results) == 0 {
		return
	}

	for _, result := range results {
		ns.notifyEmployee(result)
		ns.notifyManager(ctx, result)
	}
}

func (ns *NotificationService) notifyEmployee(result models.AutoClockOutResult) {
	if result.Employee.TelegramChatID == "" {
		return
	}

	chatID, err := strconv.ParseInt(result.Employee.TelegramChatID, 10, 64)
	if err != nil {
		logrus.Warnf("Employee %s has malformed telegramChatID %q", result.Employee.UID, result.Employee.TelegramChatID)
		return
	}

	text := fmt.Sprintf("⚠️ You have been automatically clocked out because %s.", result.Reason)
	if err := ns.sender.SendMessage(chatID, text); err != nil {
		logrus.Errorf("Failed to notify employee %s: %v", result.Employee.UID, err)
	}
}

func (ns *NotificationService) notifyManager(ctx context.Context, result models.AutoClockOutResult) {
	managerUID := result.Employee.ReportingLineManager
	if managerUID == "" {
		return
	}

	project := ns.manager.Get(result.ProjectName)
	if project == nil {
		return
	}

	employeeRepo := repositories.NewEmployeeRepository(project.Database)
	lineManager, err := employeeRepo.GetByUID(ctx, managerUID)
	if err != nil {
		logrus.Errorf("Failed to resolve manager %s: %v", managerUID, err)
		return
	}
	if lineManager == nil || lineManager.TelegramChatID == "" {
		return
	}

	chatID, err := strconv.ParseInt(lineManager.TelegramChatID, 10, 64)
	if err != nil {
		logrus.Warnf("Manager %s has malformed telegramChatID %q", managerUID, lineManager.TelegramChatID)
		return
	}

	text := fmt.Sprintf("👤 Employee %s has been automatically clocked out due to %s.", result.Employee.Name, result.Reason)
	if err := ns.sender.SendMessage(chatID, text); err != nil {
		logrus.Errorf("Failed to notify manager %s: %v", managerUID, err)
	}
}
