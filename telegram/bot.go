package telegram

import (
	"context"
	"sync"

	"geoclock/database"
	"geoclock/models"
	"geoclock/services"
	"geoclock/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Bot is the long-polling chat transport. Inbound location events (initial
// shares on message, live updates on edited_message) feed the ingestion
// service; outbound sends use HTML parse mode.
type Bot struct {
	api *tgbotapi.BotAPI

	locations *services.LocationService
	sessions  *services.SessionService
	manager   *database.Manager
	linker    *utils.WebAppLinker

	defaultTimezone string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBot(
	token string,
	locations *services.LocationService,
	sessions *services.SessionService,
	manager *database.Manager,
	linker *utils.WebAppLinker,
	defaultTimezone string,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, utils.NewTransportError("failed to initialize Telegram bot", err)
	}

	logrus.Infof("🤖 Telegram bot authorized as @%s", api.Self.UserName)

	return &Bot{
		api:             api,
		locations:       locations,
		sessions:        sessions,
		manager:         manager,
		linker:          linker,
		defaultTimezone: defaultTimezone,
	}, nil
}

// Start begins long polling in its own goroutine.
func (b *Bot) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updateConfig.AllowedUpdates = []string{"message", "edited_message"}

	updates := b.api.GetUpdatesChan(updateConfig)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				b.handleUpdate(ctx, update)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts polling; queued updates stay on Telegram's side.
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.api.StopReceivingUpdates()
	b.wg.Wait()
	logrus.Info("Telegram bot stopped")
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Location != nil:
		b.handleLocation(ctx, update.Message, false)
	case update.EditedMessage != nil && update.EditedMessage.Location != nil:
		b.handleLocation(ctx, update.EditedMessage, true)
	}
}

func (b *Bot) handleLocation(ctx context.Context, message *tgbotapi.Message, isEdit bool) {
	location := message.Location

	event := models.LocationEvent{
		ChatID:            message.Chat.ID,
		MessageID:         message.MessageID,
		Latitude:          location.Latitude,
		Longitude:         location.Longitude,
		LivePeriodSeconds: location.LivePeriod,
		IsEdit:            isEdit,
	}

	// Optional fields arrive as zero values when absent. The Bot API exposes
	// no speed field, so events from this transport never carry one.
	if location.HorizontalAccuracy > 0 {
		event.Accuracy = utils.Float64Ptr(location.HorizontalAccuracy)
	}
	if location.Heading > 0 {
		event.Heading = utils.Float64Ptr(float64(location.Heading))
	}

	if !utils.IsValidCoordinate(event.Latitude, event.Longitude) {
		logrus.Warnf("Ignoring location event with invalid coordinates from chat %d", event.ChatID)
		return
	}

	if err := b.locations.OnLocationEvent(ctx, event); err != nil {
		if serviceErr, ok := utils.GetServiceError(err); ok && serviceErr.Code == utils.ErrCodeContextUnresolved && !isEdit {
			b.reply(message.Chat.ID, "I don't know who you are yet. Send /start <your employee ID> to link this chat.")
		}
	}
}

// SendMessage delivers a plain-text message with HTML parse mode. Implements
// services.MessageSender.
func (b *Bot) SendMessage(chatID int64, text string) error {
	message := tgbotapi.NewMessage(chatID, text)
	message.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(message); err != nil {
		return utils.NewTransportError("failed to send Telegram message", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		logrus.Errorf("Failed to reply to chat %d: %v", chatID, err)
	}
}
