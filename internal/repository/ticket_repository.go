package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studiodesk/support-tickets/internal/domain"
)

var (
	// ErrTicketNumberTaken is returned when the generated ticket number collides.
	ErrTicketNumberTaken = errors.New("ticket number already in use")
	// ErrStaleTicket is returned when the row changed since it was read.
	ErrStaleTicket = errors.New("ticket was modified concurrently")
)

const uniqueViolation = "23505"

// TicketFilter captures list parameters.
type TicketFilter struct {
	StudioID   *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Writes carry the history
// rows produced for them and commit both in one transaction.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, history []domain.TicketHistory) error
	Update(ctx context.Context, ticket *domain.Ticket, expectedUpdatedAt time.Time, history []domain.TicketHistory) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, studio_id, category_id, subcategory_id, priority, source,
        assigned_to_user_id, reported_by_user_id, status, title, description,
        customer_name, customer_email, customer_phone, dynamic_field_data,
        sla_due_at, sla_breached, created_at, updated_at,
        first_response_at, resolved_at, closed_at, reopened_at, resolution_summary`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, history []domain.TicketHistory) error {
	origin, err := json.Marshal(ticket.Origin)
	if err != nil {
		return fmt.Errorf("encode dynamic field data: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (ticket_number, studio_id, category_id, subcategory_id, priority, source,
            assigned_to_user_id, reported_by_user_id, status, title, description,
            customer_name, customer_email, customer_phone, dynamic_field_data,
            sla_due_at, sla_breached, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id`
	err = tx.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.StudioID,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.Priority,
		ticket.Source,
		ticket.AssignedToUserID,
		ticket.ReportedByUserID,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.CustomerPhone,
		origin,
		ticket.SLADueAt,
		ticket.SLABreached,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "ticket_number") {
			return ErrTicketNumberTaken
		}
		return err
	}

	for i := range history {
		history[i].TicketID = ticket.ID
		if err := insertHistory(ctx, tx, &history[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, expectedUpdatedAt time.Time, history []domain.TicketHistory) error {
	origin, err := json.Marshal(ticket.Origin)
	if err != nil {
		return fmt.Errorf("encode dynamic field data: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE tickets SET studio_id=$1, category_id=$2, subcategory_id=$3, priority=$4, source=$5,
            assigned_to_user_id=$6, status=$7, title=$8, description=$9,
            customer_name=$10, customer_email=$11, customer_phone=$12, dynamic_field_data=$13,
            sla_due_at=$14, sla_breached=$15, updated_at=$16,
            first_response_at=$17, resolved_at=$18, closed_at=$19, reopened_at=$20,
            resolution_summary=$21
        WHERE id=$22 AND updated_at=$23`
	cmd, err := tx.Exec(ctx, query,
		ticket.StudioID,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.Priority,
		ticket.Source,
		ticket.AssignedToUserID,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.CustomerPhone,
		origin,
		ticket.SLADueAt,
		ticket.SLABreached,
		ticket.UpdatedAt,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ReopenedAt,
		ticket.ResolutionSummary,
		ticket.ID,
		expectedUpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrStaleTicket
	}

	for i := range history {
		history[i].TicketID = ticket.ID
		if err := insertHistory(ctx, tx, &history[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_number=$1)`, number).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StudioID != nil {
		args = append(args, *filter.StudioID)
		clauses = append(clauses, fmt.Sprintf("studio_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(ticket_number) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC, id ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var origin []byte
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.StudioID,
			&ticket.CategoryID,
			&ticket.SubcategoryID,
			&ticket.Priority,
			&ticket.Source,
			&ticket.AssignedToUserID,
			&ticket.ReportedByUserID,
			&ticket.Status,
			&ticket.Title,
			&ticket.Description,
			&ticket.CustomerName,
			&ticket.CustomerEmail,
			&ticket.CustomerPhone,
			&origin,
			&ticket.SLADueAt,
			&ticket.SLABreached,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.FirstResponseAt,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
			&ticket.ReopenedAt,
			&ticket.ResolutionSummary,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(origin, &ticket.Origin); err != nil {
			return nil, fmt.Errorf("decode dynamic field data for ticket %s: %w", ticket.ID, err)
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
