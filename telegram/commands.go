package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"geoclock/database"
	"geoclock/models"
	"geoclock/repositories"
	"geoclock/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "test":
		b.handleTest(ctx, message)
	case "app":
		b.handleApp(ctx, message)
	case "location":
		b.handleLocationStatus(ctx, message)
	case "live":
		b.reply(message.Chat.ID,
			"To share your live location: tap the attachment icon, choose "+
				"<b>Location</b>, then <b>Share Live Location</b> and pick a duration. "+
				"Keep it running while you are clocked in.")
	default:
		b.reply(message.Chat.ID, "Unknown command. Available: /start, /test, /app, /location, /live")
	}
}

// handleStart links this chat to an employee: /start <employee-uid> looks
// the uid up across healthy projects and stores the chat id on the document.
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	uid := strings.TrimSpace(message.CommandArguments())
	if uid == "" {
		b.reply(message.Chat.ID,
			"👋 Welcome! Link this chat to your employee record with "+
				"<b>/start &lt;your employee ID&gt;</b>.")
		return
	}

	chatID := message.Chat.ID
	chatIDStr := strconv.FormatInt(chatID, 10)

	for _, project := range b.manager.Healthy(ctx) {
		employeeRepo := repositories.NewEmployeeRepository(project.Database)

		employee, err := employeeRepo.GetByUID(ctx, uid)
		if err != nil {
			logrus.Errorf("Employee lookup failed on project %s: %v", project.Name, err)
			continue
		}
		if employee == nil {
			continue
		}

		err = database.WithRetry(ctx, project.Name, "link telegram chat", func(ctx context.Context) error {
			return employeeRepo.SetTelegramChatID(ctx, employee.ID, chatIDStr)
		})
		if err != nil {
			b.reply(chatID, "Something went wrong while linking your chat. Please try again.")
			return
		}

		b.sessions.Upsert(chatID, models.EmployeeContext{
			EmployeeID:  employee.ID,
			UID:         employee.UID,
			ProjectName: project.Name,
		})

		b.reply(chatID, fmt.Sprintf(
			"✅ Linked to <b>%s</b>. Share your live location with /live to stay clocked in.",
			employee.Name))
		return
	}

	b.reply(chatID, "No employee found with that ID. Check it and try again.")
}

func (b *Bot) handleTest(ctx context.Context, message *tgbotapi.Message) {
	healthy := b.manager.Healthy(ctx)
	b.reply(message.Chat.ID, fmt.Sprintf(
		"✅ Bot is up. %d of %d project database(s) healthy.",
		len(healthy), len(b.manager.All())))
}

func (b *Bot) handleApp(ctx context.Context, message *tgbotapi.Message) {
	empCtx, ok := b.resolveChat(ctx, message.Chat.ID)
	if !ok {
		b.reply(message.Chat.ID, "Link this chat first with /start <your employee ID>.")
		return
	}

	link, err := b.linker.BuildURL(empCtx.UID, empCtx.ProjectName)
	if err != nil {
		logrus.Errorf("Failed to build web app link for %s: %v", empCtx.UID, err)
		b.reply(message.Chat.ID, "The web app link is not available right now.")
		return
	}

	b.reply(message.Chat.ID, fmt.Sprintf("🌐 Open the app: <a href=\"%s\">%s</a>", link, link))
}

func (b *Bot) handleLocationStatus(ctx context.Context, message *tgbotapi.Message) {
	empCtx, ok := b.resolveChat(ctx, message.Chat.ID)
	if !ok {
		b.reply(message.Chat.ID, "Link this chat first with /start <your employee ID>.")
		return
	}

	project := b.manager.Get(empCtx.ProjectName)
	if project == nil {
		b.reply(message.Chat.ID, "Your project database is unavailable right now.")
		return
	}

	employee, err := repositories.NewEmployeeRepository(project.Database).GetByUID(ctx, empCtx.UID)
	if err != nil || employee == nil {
		b.reply(message.Chat.ID, "Could not load your record right now.")
		return
	}

	location := employee.CurrentLocation
	if location == nil {
		b.reply(message.Chat.ID, "📍 No location on file yet. Share one with /live.")
		return
	}

	tz := employee.Timezone
	if tz == "" {
		tz = b.defaultTimezone
	}

	state := "static"
	if location.IsLive {
		state = "live"
	}
	if location.EndedAt != nil {
		state = "ended"
	}

	age := utils.AgeMinutes(time.Now().UTC(), location.UpdatedAt)
	b.reply(message.Chat.ID, fmt.Sprintf(
		"📍 Last location: %.5f, %.5f\nShared: %s (%s, %d minute(s) ago)",
		location.Latitude, location.Longitude,
		utils.FormatHour(location.UpdatedAt, tz), state, age))
}

// resolveChat finds the employee context for a chat via the session map,
// falling back to a store lookup.
func (b *Bot) resolveChat(ctx context.Context, chatID int64) (models.EmployeeContext, bool) {
	if empCtx, ok := b.sessions.Get(chatID); ok {
		return *empCtx, true
	}

	chatIDStr := strconv.FormatInt(chatID, 10)
	for _, project := range b.manager.Healthy(ctx) {
		employee, err := repositories.NewEmployeeRepository(project.Database).GetByTelegramChatID(ctx, chatIDStr)
		if err != nil || employee == nil {
			continue
		}

		empCtx := models.EmployeeContext{
			EmployeeID:  employee.ID,
			UID:         employee.UID,
			ProjectName: project.Name,
		}
		b.sessions.Upsert(chatID, empCtx)
		return empCtx, true
	}

	return models.EmployeeContext{}, false
}
