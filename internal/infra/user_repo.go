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

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) ports.UserRepository {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Create(ctx context.Context, name, apiKey, accessToken string) (*models.User, error) {
	user := models.User{Name: name, APIKey: apiKey, AccessToken: accessToken}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, api_key, access_token)
		VALUES ($1, $2, $3)
		RETURNING id`,
		name, apiKey, accessToken,
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepo) GetByAccessToken(ctx context.Context, token string) (*models.User, error) {
	return r.getBy(ctx, `access_token = $1`, token)
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *PostgresUserRepo) getBy(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, api_key, access_token FROM users WHERE `+where,
		arg,
	).Scan(&user.ID, &user.Name, &user.APIKey, &user.AccessToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
