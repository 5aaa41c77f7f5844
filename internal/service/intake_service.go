package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/intake"
	"github.com/studiodesk/support-tickets/internal/repository"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

const defaultIdempotencyTTL = 10 * time.Minute

// WebhookOutcome describes what an inbound webhook delivery resulted in.
type WebhookOutcome string

const (
	// WebhookCreated means a new ticket was filed.
	WebhookCreated WebhookOutcome = "created"
	// WebhookAccepted means the rule matched but is not processed automatically.
	WebhookAccepted WebhookOutcome = "accepted"
	// WebhookDuplicate means the idempotency key was already used.
	WebhookDuplicate WebhookOutcome = "duplicate"
)

// WebhookResult is returned by IngestWebhook.
type WebhookResult struct {
	Outcome WebhookOutcome
	Rule    domain.WebhookRule
	Ticket  *domain.Ticket
}

// EmailClassification is the pure classification result for one message.
type EmailClassification struct {
	Matched bool
	Rule    *domain.EmailRule
}

// ImportedTicket summarises the ticket created for one imported message.
type ImportedTicket struct {
	MessageID string
	RuleID    *string
	Ticket    *domain.Ticket
}

// IntakeService turns inbound webhook deliveries and mailbox messages into
// tickets using the configured rule sets.
type IntakeService struct {
	settings       repository.SettingsRepository
	deliveries     repository.DeliveryRepository
	fallback       *intake.FallbackResolver
	tickets        *TicketService
	logger         *zap.Logger
	idempotencyTTL time.Duration
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	SettingsRepo   repository.SettingsRepository
	DeliveryRepo   repository.DeliveryRepository
	Fallback       *intake.FallbackResolver
	Tickets        *TicketService
	Logger         *zap.Logger
	IdempotencyTTL time.Duration
}

// NewIntakeService constructs the service. DeliveryRepo may be nil, which
// disables webhook de-duplication.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IntakeService{
		settings:       deps.SettingsRepo,
		deliveries:     deps.DeliveryRepo,
		fallback:       deps.Fallback,
		tickets:        deps.Tickets,
		logger:         logger,
		idempotencyTTL: ttl,
	}
}

// IngestWebhook handles one delivery to the public webhook endpoint.
func (s *IntakeService) IngestWebhook(ctx context.Context, key string, payload map[string]any, idempotencyKey string) (*WebhookResult, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Webhooks.Enabled {
		return nil, apperrors.NewConfigurationError("webhook ingestion is disabled", http.StatusForbidden, nil)
	}
	rule, ok := intake.MatchWebhookRule(key, settings.Webhooks.Rules)
	if !ok {
		return nil, apperrors.NewNotFound("webhook rule", nil)
	}
	result := &WebhookResult{Rule: *rule}
	if !rule.ProcessAutomatically {
		s.logger.Info("webhook accepted for manual review", zap.String("rule_id", rule.ID))
		result.Outcome = WebhookAccepted
		return result, nil
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	reserved := false
	if idempotencyKey != "" && s.deliveries != nil {
		scoped := rule.ID + ":" + idempotencyKey
		ok, ticketID, err := s.deliveries.Reserve(ctx, scoped, s.idempotencyTTL)
		switch {
		case err != nil:
			s.logger.Warn("webhook de-duplication unavailable", zap.String("rule_id", rule.ID), zap.Error(err))
		case !ok && ticketID == "":
			return nil, apperrors.NewConflict("delivery with this idempotency key is in progress", map[string]any{
				"idempotency_key": idempotencyKey,
			})
		case !ok:
			ticket, err := s.tickets.Get(ctx, ticketID)
			if err != nil {
				return nil, err
			}
			result.Outcome = WebhookDuplicate
			result.Ticket = ticket
			return result, nil
		default:
			reserved = true
			defer func() {
				if reserved {
					if err := s.deliveries.Release(context.WithoutCancel(ctx), scoped); err != nil {
						s.logger.Warn("release webhook delivery key", zap.Error(err))
					}
				}
			}()
		}
	}

	placement, err := s.fallback.Resolve(ctx, rule.DefaultStudioID, rule.DefaultCategoryID)
	if err != nil {
		return nil, err
	}

	fields := intake.ExtractWebhookFields(payload)
	title := fields.Title
	if title == "" {
		title = "Webhook ticket: " + rule.Name
	}
	draft := intake.Draft{
		Title:          title,
		Description:    fields.Description,
		StudioID:       placement.StudioID,
		CategoryID:     placement.CategoryID,
		Priority:       rule.DefaultPriority,
		Source:         domain.TicketSourceWebhook,
		AutoProcess:    true,
		AssignToUserID: rule.AssignToUserID,
		CustomerName:   optionalString(fields.CustomerName),
		CustomerEmail:  optionalString(fields.CustomerEmail),
		CustomerPhone:  optionalString(fields.CustomerPhone),
		Origin: domain.NewWebhookOrigin(domain.WebhookOrigin{
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			IdempotencyKey: idempotencyKey,
			Payload:        payload,
		}),
	}
	ticket, err := s.tickets.CreateFromDraft(ctx, draft, nil)
	if err != nil {
		return nil, err
	}

	if reserved {
		if err := s.deliveries.Complete(ctx, rule.ID+":"+idempotencyKey, ticket.ID, s.idempotencyTTL); err != nil {
			s.logger.Warn("record webhook delivery", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			reserved = false
		}
	}
	result.Outcome = WebhookCreated
	result.Ticket = ticket
	return result, nil
}

// ClassifyEmail matches subject and body against the email rules without
// side effects.
func (s *IntakeService) ClassifyEmail(ctx context.Context, subject, body string) (*EmailClassification, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	rule, ok := intake.ClassifyEmail(subject, body, settings.Email.Rules)
	return &EmailClassification{Matched: ok, Rule: rule}, nil
}

type plannedImport struct {
	message intake.RawMessage
	rule    *domain.EmailRule
	draft   intake.Draft
}

// ImportEmail files one ticket per message. Every message is classified and
// placed before any ticket is written, so a missing fallback studio or
// category fails the whole request without creating anything.
func (s *IntakeService) ImportEmail(ctx context.Context, actorID string, messages []intake.RawMessage) ([]ImportedTicket, error) {
	if len(messages) == 0 {
		return nil, apperrors.NewValidationError("at least one message is required", map[string]any{"messages": "required"})
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Email.Enabled {
		return nil, apperrors.NewConfigurationError("email import is disabled", http.StatusForbidden, nil)
	}

	plans := make([]plannedImport, 0, len(messages))
	for i, message := range messages {
		if strings.TrimSpace(message.ID) == "" {
			return nil, apperrors.NewValidationError("message id is required", map[string]any{"index": i})
		}
		plan, err := s.planImport(ctx, message, settings.Email.Rules)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	actor := actorRef(actorID)
	results := make([]ImportedTicket, 0, len(plans))
	for _, plan := range plans {
		ticket, err := s.tickets.CreateFromDraft(ctx, plan.draft, actor)
		if err != nil {
			return nil, err
		}
		imported := ImportedTicket{MessageID: plan.message.ID, Ticket: ticket}
		if plan.rule != nil {
			ruleID := plan.rule.ID
			imported.RuleID = &ruleID
		}
		results = append(results, imported)
	}
	s.logger.Info("email import finished", zap.Int("messages", len(messages)), zap.Int("tickets", len(results)))
	return results, nil
}

func (s *IntakeService) planImport(ctx context.Context, message intake.RawMessage, rules []domain.EmailRule) (plannedImport, error) {
	content := message.Content()
	rule, matched := intake.ClassifyEmail(message.Subject, content, rules)

	var categoryID, subcategoryID *string
	priority := domain.TicketPriorityMedium
	autoProcess := false
	var assignTo *string
	ruleID := ""
	if matched {
		categoryID = rule.CategoryID
		subcategoryID = rule.SubcategoryID
		if rule.Priority.Valid() {
			priority = rule.Priority
		}
		autoProcess = rule.AutoProcess
		assignTo = rule.AssignToUserID
		ruleID = rule.ID
	}

	placement, err := s.fallback.Resolve(ctx, nil, categoryID)
	if err != nil {
		return plannedImport{}, err
	}
	window, err := s.tickets.SLAWindow(ctx, &placement.CategoryID, subcategoryID)
	if err != nil {
		return plannedImport{}, err
	}

	name, address := message.Sender()
	title := strings.TrimSpace(message.Subject)
	if title == "" {
		title = "(no subject)"
	}
	plan := plannedImport{
		message: message,
		draft: intake.Draft{
			Title:          title,
			Description:    content,
			StudioID:       placement.StudioID,
			CategoryID:     placement.CategoryID,
			SubcategoryID:  subcategoryID,
			Priority:       priority,
			Source:         domain.TicketSourceEmail,
			AutoProcess:    autoProcess,
			AssignToUserID: assignTo,
			CustomerName:   optionalString(name),
			CustomerEmail:  optionalString(address),
			Origin: domain.NewEmailImportOrigin(domain.EmailImportOrigin{
				MessageID:  message.ID,
				ThreadID:   message.ThreadID,
				From:       message.From,
				RuleID:     ruleID,
				ReceivedAt: message.ReceivedAt,
			}),
			SLAWindow: window,
		},
	}
	if matched {
		plan.rule = rule
	}
	return plan, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
