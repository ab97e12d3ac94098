package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores player records as rows with JSONB friends /
// friend_requests columns.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (p *PostgresRepository) Get(ctx context.Context, userID string) (*Record, error) {
	const q = `
		SELECT id, display_name, friends, friend_requests, games_played, games_won, created_at, updated_at
		FROM players
		WHERE id = $1
	`
	var (
		rec          Record
		friendsJSON  []byte
		requestsJSON []byte
	)
	err := p.pool.QueryRow(ctx, q, userID).Scan(
		&rec.ID, &rec.DisplayName, &friendsJSON, &requestsJSON,
		&rec.GamesPlayed, &rec.GamesWon, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get player: %v", ErrStorage, err)
	}

	if err := json.Unmarshal(friendsJSON, &rec.Friends); err != nil {
		return nil, fmt.Errorf("decode friends: %w", err)
	}
	if err := json.Unmarshal(requestsJSON, &rec.FriendRequests); err != nil {
		return nil, fmt.Errorf("decode friend requests: %w", err)
	}
	return &rec, nil
}

func (p *PostgresRepository) Save(ctx context.Context, rec *Record) error {
	friendsJSON, err := json.Marshal(emptyIfNil(rec.Friends))
	if err != nil {
		return fmt.Errorf("encode friends: %w", err)
	}
	requestsJSON, err := json.Marshal(emptyRequestsIfNil(rec.FriendRequests))
	if err != nil {
		return fmt.Errorf("encode friend requests: %w", err)
	}

	const q = `
		INSERT INTO players (id, display_name, friends, friend_requests, games_played, games_won, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), NOW())
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			friends = EXCLUDED.friends,
			friend_requests = EXCLUDED.friend_requests,
			games_played = EXCLUDED.games_played,
			games_won = EXCLUDED.games_won,
			updated_at = NOW()
	`
	var createdAt interface{}
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt
	}
	if _, err := p.pool.Exec(ctx, q, rec.ID, rec.DisplayName, friendsJSON, requestsJSON,
		rec.GamesPlayed, rec.GamesWon, createdAt); err != nil {
		return fmt.Errorf("%w: save player: %v", ErrStorage, err)
	}
	return nil
}

func (p *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	return p.Save(ctx, rec)
}

func (p *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]*Record, error) {
	const q = `
		SELECT id, display_name, friends, friend_requests, games_played, games_won, created_at, updated_at
		FROM players
		WHERE display_name ILIKE '%' || $1 || '%'
		ORDER BY display_name
		LIMIT $2
	`
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search players: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			rec          Record
			friendsJSON  []byte
			requestsJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.DisplayName, &friendsJSON, &requestsJSON,
			&rec.GamesPlayed, &rec.GamesWon, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		if err := json.Unmarshal(friendsJSON, &rec.Friends); err != nil {
			return nil, fmt.Errorf("decode friends: %w", err)
		}
		if err := json.Unmarshal(requestsJSON, &rec.FriendRequests); err != nil {
			return nil, fmt.Errorf("decode friend requests: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyRequestsIfNil(s []FriendRequest) []FriendRequest {
	if s == nil {
		return []FriendRequest{}
	}
	return s
}
