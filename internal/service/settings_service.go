package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/events"
	"github.com/studiodesk/support-tickets/internal/intake"
	"github.com/studiodesk/support-tickets/internal/repository"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

// WebhookSettingsInput replaces the webhook section of the settings document.
type WebhookSettingsInput struct {
	Enabled bool
	Rules   []domain.WebhookRule
	Version int64
}

// EmailSettingsInput replaces the email section of the settings document.
type EmailSettingsInput struct {
	Enabled           bool
	ConnectedAccounts []domain.ConnectedAccount
	Rules             []domain.EmailRule
	Version           int64
}

// SettingsService manages the integration settings document.
type SettingsService struct {
	settings   repository.SettingsRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	factory    *intake.Factory
	references *intake.FallbackResolver
}

// NewSettingsService constructs the service. references, when set, is used to
// reject rules that point at studios or categories that do not exist.
func NewSettingsService(settings repository.SettingsRepository, dispatcher events.Dispatcher, factory *intake.Factory, references *intake.FallbackResolver, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{settings: settings, dispatcher: dispatcher, factory: factory, references: references, logger: logger}
}

// Get returns the current document merged with defaults.
func (s *SettingsService) Get(ctx context.Context) (*domain.IntegrationSettings, error) {
	return s.settings.Load(ctx)
}

// SaveWebhooks validates and stores the webhook rules. Two active rules may
// not share a key.
func (s *SettingsService) SaveWebhooks(ctx context.Context, actorID string, input WebhookSettingsInput) (*domain.IntegrationSettings, error) {
	rules := make([]domain.WebhookRule, len(input.Rules))
	copy(rules, input.Rules)

	problems := map[string]any{}
	for i := range rules {
		rule := &rules[i]
		rule.Name = strings.TrimSpace(rule.Name)
		rule.Key = strings.TrimSpace(rule.Key)
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		if rule.Name == "" {
			problems[fmt.Sprintf("rules[%d].name", i)] = "required"
		}
		if rule.Key == "" {
			problems[fmt.Sprintf("rules[%d].key", i)] = "required"
		}
		if rule.DefaultPriority == "" {
			rule.DefaultPriority = domain.TicketPriorityMedium
		}
		if !rule.DefaultPriority.Valid() {
			problems[fmt.Sprintf("rules[%d].defaultPriority", i)] = "must be one of low, medium, high, critical"
		}
	}
	if dups := intake.DuplicateWebhookKeys(rules); len(dups) > 0 {
		problems["duplicateKeys"] = len(dups)
	}
	for i, rule := range rules {
		prefix := fmt.Sprintf("rules[%d].", i)
		if err := s.checkReferences(ctx, problems, rule.DefaultStudioID, rule.DefaultCategoryID, prefix+"defaultStudioId", prefix+"defaultCategoryId"); err != nil {
			return nil, err
		}
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid webhook rules", problems)
	}

	return s.save(ctx, actorID, "webhooks", input.Version, func(doc *domain.IntegrationSettings) {
		doc.Webhooks.Enabled = input.Enabled
		doc.Webhooks.Rules = rules
	})
}

// SaveEmail validates and stores the email rules and connected accounts.
func (s *SettingsService) SaveEmail(ctx context.Context, actorID string, input EmailSettingsInput) (*domain.IntegrationSettings, error) {
	rules := make([]domain.EmailRule, len(input.Rules))
	copy(rules, input.Rules)

	problems := map[string]any{}
	for i := range rules {
		rule := &rules[i]
		rule.Name = strings.TrimSpace(rule.Name)
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		if rule.Name == "" {
			problems[fmt.Sprintf("rules[%d].name", i)] = "required"
		}
		keywords := make([]string, 0, len(rule.MatchKeywords))
		for _, keyword := range rule.MatchKeywords {
			if k := strings.TrimSpace(keyword); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			problems[fmt.Sprintf("rules[%d].matchKeywords", i)] = "at least one keyword is required"
		}
		rule.MatchKeywords = keywords
		if rule.Priority == "" {
			rule.Priority = domain.TicketPriorityMedium
		}
		if !rule.Priority.Valid() {
			problems[fmt.Sprintf("rules[%d].priority", i)] = "must be one of low, medium, high, critical"
		}
	}
	for i, rule := range rules {
		prefix := fmt.Sprintf("rules[%d].", i)
		if err := s.checkReferences(ctx, problems, nil, rule.CategoryID, "", prefix+"categoryId"); err != nil {
			return nil, err
		}
		if err := s.checkReferences(ctx, problems, nil, rule.SubcategoryID, "", prefix+"subcategoryId"); err != nil {
			return nil, err
		}
	}
	for i, account := range input.ConnectedAccounts {
		if strings.TrimSpace(account.Email) == "" {
			problems[fmt.Sprintf("connectedAccounts[%d].email", i)] = "required"
		}
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid email settings", problems)
	}

	return s.save(ctx, actorID, "email", input.Version, func(doc *domain.IntegrationSettings) {
		doc.Email.Enabled = input.Enabled
		doc.Email.Rules = rules
		if input.ConnectedAccounts != nil {
			doc.Email.ConnectedAccounts = input.ConnectedAccounts
		}
	})
}

func (s *SettingsService) save(ctx context.Context, actorID, section string, version int64, apply func(*domain.IntegrationSettings)) (*domain.IntegrationSettings, error) {
	doc, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Version != version {
		return nil, staleSettings(doc.Version, version)
	}
	apply(doc)
	doc.Normalize()
	if err := s.settings.Save(ctx, doc, version); err != nil {
		if errors.Is(err, repository.ErrStaleSettings) {
			return nil, staleSettings(-1, version)
		}
		return nil, err
	}

	s.logger.Info("integration settings saved", zap.String("section", section), zap.Int64("version", doc.Version))
	publish(ctx, s.dispatcher, s.logger, s.factory.Now(), events.Event{
		Type:    events.EventSettingsChanged,
		ActorID: actorRef(actorID),
		Payload: events.SettingsChangedPayload{Section: section, Version: doc.Version},
	})
	return doc, nil
}

// checkReferences records a problem under studioField or categoryField for
// each id that names no stored row.
func (s *SettingsService) checkReferences(ctx context.Context, problems map[string]any, studioID, categoryID *string, studioField, categoryField string) error {
	if s.references == nil {
		return nil
	}
	found, err := s.references.Verify(ctx, studioID, categoryID)
	if err != nil {
		return err
	}
	if reason, ok := found["studioId"]; ok {
		problems[studioField] = reason
	}
	if reason, ok := found["categoryId"]; ok {
		problems[categoryField] = reason
	}
	return nil
}

func staleSettings(current, expected int64) error {
	details := map[string]any{"expectedVersion": expected}
	if current >= 0 {
		details["currentVersion"] = current
	}
	return apperrors.NewConflict("integration settings were changed by another request", details)
}
