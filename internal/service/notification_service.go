package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/studiodesk/support-tickets/internal/events"
	"github.com/studiodesk/support-tickets/internal/repository"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	settings   repository.SettingsRepository
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, settings repository.SettingsRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		settings:   settings,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendMailtrapNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketClosed", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendMailtrapNotificationStub(ctx, event)
	return nil
}

// sendMailtrapNotificationStub records the mail that would go out when the
// mailtrap section of the settings document is enabled.
func (n *NotificationService) sendMailtrapNotificationStub(ctx context.Context, event events.Event) {
	if n.settings == nil {
		return
	}
	settings, err := n.settings.Load(ctx)
	if err != nil {
		n.logger.Warn("load notification settings", zap.Error(err))
		return
	}
	mailtrap := settings.Mailtrap
	if !mailtrap.Enabled || strings.TrimSpace(mailtrap.SenderEmail) == "" {
		return
	}
	n.logger.Debug("sendMailtrapNotificationStub",
		zap.String("from", mailtrap.SenderEmail),
		zap.String("inbox_id", mailtrap.InboxID),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
