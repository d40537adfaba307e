package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

type PostgresRecordingRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordingRepo(pool *pgxpool.Pool) ports.RecordingRepository {
	return &PostgresRecordingRepo{pool: pool}
}

const recordingColumns = `id, COALESCE(video_id, ''), COALESCE(stream_url, ''), COALESCE(player_url, ''),
	COALESCE(session_id, ''), user_id, duration, insights, insights_status, created_at`

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var rec models.Recording
	err := row.Scan(
		&rec.ID,
		&rec.VideoID,
		&rec.StreamURL,
		&rec.PlayerURL,
		&rec.SessionID,
		&rec.UserID,
		&rec.Duration,
		&rec.Insights,
		&rec.InsightsStatus,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRecordingRepo) CreatePending(ctx context.Context, sessionID string, userID int) (*models.Recording, error) {
	query := `
		INSERT INTO recordings (session_id, user_id, insights_status)
		VALUES ($1, $2, 'pending')
		RETURNING ` + recordingColumns

	rec, err := scanRecording(r.pool.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		return nil, fmt.Errorf("create pending recording: %w", err)
	}
	return rec, nil
}

// UpsertExported applies an exported webhook in one round trip per path.
// The session row created at capture-session time is preferred; otherwise
// the insert dedupes on video_id so webhook retries cannot double-insert.
func (r *PostgresRecordingRepo) UpsertExported(ctx context.Context, in ports.ExportedRecording) (*models.Recording, error) {
	update := `
		UPDATE recordings
		SET video_id = $2, stream_url = $3, player_url = $4, insights_status = 'pending'
		WHERE session_id = $1
		RETURNING ` + recordingColumns

	rec, err := scanRecording(r.pool.QueryRow(ctx, update, in.SessionID, in.VideoID, in.StreamURL, in.PlayerURL))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update exported recording: %w", err)
	}

	insert := `
		INSERT INTO recordings (video_id, stream_url, player_url, session_id, insights_status)
		VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (video_id) DO UPDATE
		SET stream_url = EXCLUDED.stream_url,
		    player_url = EXCLUDED.player_url,
		    session_id = EXCLUDED.session_id
		RETURNING ` + recordingColumns

	rec, err = scanRecording(r.pool.QueryRow(ctx, insert, in.VideoID, in.StreamURL, in.PlayerURL, in.SessionID))
	if err != nil {
		return nil, fmt.Errorf("insert exported recording: %w", err)
	}
	return rec, nil
}

func (r *PostgresRecordingRepo) SetInsightsStatus(ctx context.Context, recordingID int, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE recordings SET insights_status = $1 WHERE id = $2`,
		status, recordingID,
	)
	if err != nil {
		return fmt.Errorf("set insights status: %w", err)
	}
	return nil
}

func (r *PostgresRecordingRepo) CompleteInsights(ctx context.Context, recordingID int, insights, streamURL, playerURL string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE recordings
		SET insights = $1, stream_url = $2, player_url = $3, insights_status = 'ready'
		WHERE id = $4`,
		insights, streamURL, playerURL, recordingID,
	)
	if err != nil {
		return fmt.Errorf("complete insights: %w", err)
	}
	return nil
}

func (r *PostgresRecordingRepo) List(ctx context.Context, limit int) ([]models.Recording, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordingColumns+` FROM recordings ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *PostgresRecordingRepo) GetByID(ctx context.Context, id int) (*models.Recording, error) {
	rec, err := scanRecording(r.pool.QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording by id: %w", err)
	}
	return rec, nil
}
