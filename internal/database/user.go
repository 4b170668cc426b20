// internal/database/user.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/peerlingo/peerlingo/internal/auth"
	"github.com/peerlingo/peerlingo/internal/models"
)

const userColumns = `id, full_name, email, password, bio, profile_pic,
	native_language, learning_language, location, is_onboarded, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.FullName, &u.Email, &u.Password, &u.Bio, &u.ProfilePic,
		&u.NativeLanguage, &u.LearningLanguage, &u.Location, &u.IsOnboarded,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser hashes the password and inserts the user. A duplicate email
// returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (id, full_name, email, password, bio, profile_pic,
	        native_language, learning_language, location, is_onboarded)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	      RETURNING created_at`

	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			user.ID, user.FullName, user.Email, user.Password, user.Bio,
			user.ProfilePic, user.NativeLanguage, user.LearningLanguage,
			user.Location, user.IsOnboarded,
		).Scan(&user.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(s.pool.QueryRow(ctx, q, email))
}

// UpdateUserProfile persists the mutable profile fields and the onboarded flag.
func (s *Store) UpdateUserProfile(ctx context.Context, u *models.User) error {
	q := `UPDATE users
	      SET full_name=$1, bio=$2, profile_pic=$3, native_language=$4,
	          learning_language=$5, location=$6, is_onboarded=$7
	      WHERE id=$8`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q,
			u.FullName, u.Bio, u.ProfilePic, u.NativeLanguage,
			u.LearningLanguage, u.Location, u.IsOnboarded, u.ID,
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AuthenticateUser verifies the email/password pair and returns the user.
func (s *Store) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return nil, fmt.Errorf("invalid credentials")
	}
	return user, nil
}

// RecommendUsers returns public profiles of onboarded users who are neither
// forUser nor already friends with them. Order is unspecified.
func (s *Store) RecommendUsers(ctx context.Context, forUser uuid.UUID) ([]models.PublicProfile, error) {
	q := `
	SELECT id, full_name, profile_pic, native_language, learning_language
	FROM users
	WHERE id <> $1
	  AND is_onboarded = TRUE
	  AND id NOT IN (SELECT friend_id FROM friendships WHERE user_id = $1)
	`
	rows, err := s.pool.Query(ctx, q, forUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// ListFriends resolves forUser's friend edges to public profiles. An empty
// result is not an error, but a missing forUser is.
func (s *Store) ListFriends(ctx context.Context, forUser uuid.UUID) ([]models.PublicProfile, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, forUser).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	q := `
	SELECT u.id, u.full_name, u.profile_pic, u.native_language, u.learning_language
	FROM friendships f
	JOIN users u ON u.id = f.friend_id
	WHERE f.user_id = $1
	`
	rows, err := s.pool.Query(ctx, q, forUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func scanProfiles(rows pgx.Rows) ([]models.PublicProfile, error) {
	profiles := []models.PublicProfile{}
	for rows.Next() {
		var p models.PublicProfile
		if err := rows.Scan(&p.ID, &p.FullName, &p.ProfilePic, &p.NativeLanguage, &p.LearningLanguage); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
