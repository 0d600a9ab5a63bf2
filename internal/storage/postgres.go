package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"

	"flyclaim-tracker/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateDraft(ctx context.Context, draft domain.Draft) error {
	fields, err := json.Marshal(draft.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, user_id, fields, scan_status)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO NOTHING
	`, draft.ID, draft.UserID, string(fields), domain.ScanNone)
	return err
}

func (s *PostgresStore) GetDraft(ctx context.Context, draftID string) (domain.Draft, error) {
	var d domain.Draft
	var fields []byte
	var scanMessage, objectKey, reference sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, fields, scan_status, scan_message, ticket_object_key, claim_reference,
		       created_at, updated_at
		FROM drafts
		WHERE id = $1
	`, draftID)
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&fields,
		&d.ScanStatus,
		&scanMessage,
		&objectKey,
		&reference,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return domain.Draft{}, err
	}
	if err := json.Unmarshal(fields, &d.Fields); err != nil {
		return domain.Draft{}, fmt.Errorf("decode draft fields: %w", err)
	}
	d.ScanMessage = nullable(scanMessage)
	d.TicketObjectKey = nullable(objectKey)
	d.ClaimReference = nullable(reference)
	return d, nil
}

func (s *PostgresStore) SaveDraft(ctx context.Context, draftID string, fields domain.DraftClaim) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE drafts
		SET fields = $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, draftID, string(payload))
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *PostgresStore) SetTicketObjectKey(ctx context.Context, draftID, objectKey string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE drafts
		SET ticket_object_key = $2, updated_at = NOW()
		WHERE id = $1
	`, draftID, objectKey)
	return err
}

func (s *PostgresStore) SetScanStatus(ctx context.Context, draftID string, status domain.ScanStatus, message *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE drafts
		SET scan_status = $2, scan_message = $3, updated_at = NOW()
		WHERE id = $1
	`, draftID, status, message)
	return err
}

func (s *PostgresStore) MarkDraftSubmitted(ctx context.Context, draftID, reference string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE drafts
		SET claim_reference = $2, updated_at = NOW()
		WHERE id = $1
	`, draftID, reference)
	return err
}

func (s *PostgresStore) InsertDraftEvent(ctx context.Context, draftID string, state domain.DraftEventState, detail any) error {
	var payload []byte
	switch v := detail.(type) {
	case nil:
		payload = []byte("{}")
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO draft_events (draft_id, state, detail)
		VALUES ($1, $2, $3::jsonb)
	`, draftID, state, string(payload))
	return err
}

// SubmittedReference returns the claim reference recorded by the latest
// SUBMITTED event of a draft, or "" when the draft was never filed upstream.
func (s *PostgresStore) SubmittedReference(ctx context.Context, draftID string) (string, error) {
	var reference string
	err := s.db.QueryRowContext(ctx, `
		SELECT detail->>'claim_reference'
		FROM draft_events
		WHERE draft_id = $1 AND state = $2 AND detail->>'claim_reference' IS NOT NULL
		ORDER BY id DESC
		LIMIT 1
	`, draftID, domain.DraftEventSubmitted).Scan(&reference)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return reference, nil
}

// InsertSnapshot records a tracking observation. A snapshot identical to the
// latest one for the reference is skipped so history only holds transitions.
func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap domain.ClaimSnapshot) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var lastStatus, lastDecisionTitle, lastFollowUp string
	err = tx.QueryRowContext(ctx, `
		SELECT status, decision_title, follow_up_action
		FROM claim_snapshots
		WHERE claim_reference = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, snap.ClaimReference).Scan(&lastStatus, &lastDecisionTitle, &lastFollowUp)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return false, err
	case lastStatus == string(snap.Status) && lastDecisionTitle == snap.DecisionTitle && lastFollowUp == string(snap.FollowUpAction):
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO claim_snapshots (claim_reference, status, submitted, in_review, decision, decision_title, follow_up_action, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, snap.ClaimReference, snap.Status, snap.Submitted, snap.InReview, snap.Decision, snap.DecisionTitle, snap.FollowUpAction, snap.RecordedAt)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, reference string) ([]domain.ClaimSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_reference, status, submitted, in_review, decision, decision_title, follow_up_action, recorded_at
		FROM claim_snapshots
		WHERE claim_reference = $1
		ORDER BY recorded_at ASC, id ASC
	`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := make([]domain.ClaimSnapshot, 0)
	for rows.Next() {
		var snap domain.ClaimSnapshot
		if err := rows.Scan(&snap.ClaimReference, &snap.Status, &snap.Submitted, &snap.InReview, &snap.Decision, &snap.DecisionTitle, &snap.FollowUpAction, &snap.RecordedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// ListTrackedReferences returns references whose latest snapshot is not settled.
func (s *PostgresStore) ListTrackedReferences(ctx context.Context, settledStates []domain.PhaseState) ([]string, error) {
	states := make([]string, 0, len(settledStates))
	for _, st := range settledStates {
		states = append(states, string(st))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_reference
		FROM (
			SELECT DISTINCT ON (claim_reference) claim_reference, decision
			FROM claim_snapshots
			ORDER BY claim_reference, recorded_at DESC, id DESC
		) latest
		WHERE NOT (decision = ANY($1))
		ORDER BY claim_reference
	`, pq.Array(states))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]string, 0)
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
