package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/model"
)

type ChamberRepository struct {
	pool *pgxpool.Pool
}

func NewChamberRepository(pool *pgxpool.Pool) *ChamberRepository {
	return &ChamberRepository{pool: pool}
}

// Create inserts a chamber. An empty ChamberName is replaced with a random
// unique tag before the insert; the chambername column carries a UNIQUE
// constraint either way.
func (r *ChamberRepository) Create(ctx context.Context, c *model.Chamber) error {
	defer logger.DeferLogDuration("chamber.Create", time.Now())()
	if c.ChamberName == "" {
		c.ChamberName = RandomChamberTag()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chambers (id, chambername, creator_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		c.ID, c.ChamberName, c.CreatorID, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("chamberRepo.Create: %w", err)
	}
	return nil
}

// RandomChamberTag generates an auto display tag for chambers created
// without one.
func RandomChamberTag() string {
	return "chamber-" + uuid.NewString()[:8]
}

func (r *ChamberRepository) GetByID(ctx context.Context, id string) (*model.Chamber, error) {
	defer logger.DeferLogDuration("chamber.GetByID", time.Now())()
	c := &model.Chamber{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, chambername, creator_id, created_at FROM chambers WHERE id = $1`, id,
	).Scan(&c.ID, &c.ChamberName, &c.CreatorID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chamberRepo.GetByID: %w", err)
	}
	return c, nil
}

func (r *ChamberRepository) AddMember(ctx context.Context, m *model.ChamberMember) error {
	defer logger.DeferLogDuration("chamber.AddMember", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chamber_members (chamber_id, user_id, added_at)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		m.ChamberID, m.UserID, m.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("chamberRepo.AddMember: %w", err)
	}
	return nil
}

func (r *ChamberRepository) IsMember(ctx context.Context, chamberID, userID string) (bool, error) {
	defer logger.DeferLogDuration("chamber.IsMember", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chamber_members WHERE chamber_id = $1 AND user_id = $2)`,
		chamberID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("chamberRepo.IsMember: %w", err)
	}
	return exists, nil
}

func (r *ChamberRepository) MemberIDs(ctx context.Context, chamberID string) ([]string, error) {
	defer logger.DeferLogDuration("chamber.MemberIDs", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM chamber_members WHERE chamber_id = $1`, chamberID,
	)
	if err != nil {
		return nil, fmt.Errorf("chamberRepo.MemberIDs query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("chamberRepo.MemberIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chamberRepo.MemberIDs rows: %w", err)
	}
	return ids, nil
}

func (r *ChamberRepository) Members(ctx context.Context, chamberID string) ([]model.User, error) {
	defer logger.DeferLogDuration("chamber.Members", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, COALESCE(u.email,''), u.created_at
		 FROM users u
		 JOIN chamber_members cm ON cm.user_id = u.id
		 WHERE cm.chamber_id = $1
		 ORDER BY cm.added_at`, chamberID,
	)
	if err != nil {
		return nil, fmt.Errorf("chamberRepo.Members query: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, 8)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("chamberRepo.Members scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chamberRepo.Members rows: %w", err)
	}
	return users, nil
}
