package sessionactionrepository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db     *sqlx.DB
	schema string

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	tracer := otel.Tracer("eliteseller/sessionactionrepository/postgres")

	return &Postgres{
		db:     db,
		schema: schema,

		tracer: tracer,
	}
}

type dbSessionActionEntry struct {
	ID           string    `db:"id"`
	SessionName  string    `db:"session_name"`
	Action       string    `db:"action"`
	StatusCode   int       `db:"status_code"`
	ErrorMessage string    `db:"error_message"`
	PerformedAt  time.Time `db:"performed_at"`
}

// StoreSessionAction stores the outcome of a session control action.
// A new id is generated when record.ID is empty.
func (p *Postgres) StoreSessionAction(ctx context.Context, record domain.SessionActionRecord) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreSessionAction")
	defer span.End()

	if err := domain.ValidateSessionName(record.SessionName); err != nil {
		return err
	}
	if _, err := domain.ParseSessionAction(string(record.Action)); err != nil {
		return err
	}

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session action id %q: %w", id, err)
	}

	_, err := p.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s.session_actions
		(id, session_name, action, status_code, error_message, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
			pq.QuoteIdentifier(p.schema),
		),
		id,
		record.SessionName,
		string(record.Action),
		record.StatusCode,
		record.ErrorMessage,
		record.PerformedAt,
	)
	if err != nil {
		err := fmt.Errorf("failed to insert session action: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"session":     record.SessionName,
			"action":      string(record.Action),
			"statusCode":  strconv.Itoa(record.StatusCode),
			"performedAt": record.PerformedAt.Format(time.RFC3339),
		})
		return err
	}

	return nil
}

// GetSessionActions returns the latest actions performed on a session, newest first
func (p *Postgres) GetSessionActions(ctx context.Context, session string, limit int) ([]domain.SessionActionRecord, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetSessionActions")
	defer span.End()

	if err := domain.ValidateSessionName(session); err != nil {
		return nil, err
	}

	limit = min(max(limit, 1), domain.MaxSessionActionsLimit)

	var entries []dbSessionActionEntry
	err := p.db.SelectContext(ctx, &entries, fmt.Sprintf(`SELECT
		id, session_name, action, status_code, error_message, performed_at
		FROM %s.session_actions
		WHERE session_name = $1
		ORDER BY performed_at DESC, id
		LIMIT $2`,
		pq.QuoteIdentifier(p.schema),
	),
		session,
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to select session actions: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"session": session,
		})
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionActionsNotFound, session)
	}

	records := make([]domain.SessionActionRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, domain.SessionActionRecord{
			ID:           entry.ID,
			SessionName:  entry.SessionName,
			Action:       domain.SessionAction(entry.Action),
			StatusCode:   entry.StatusCode,
			ErrorMessage: entry.ErrorMessage,
			PerformedAt:  entry.PerformedAt,
		})
	}

	return records, nil
}
