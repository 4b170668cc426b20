// internal/database/friend.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/peerlingo/peerlingo/internal/models"
)

// CreateFriendRequest validates and inserts a pending request from sender to
// recipient. The partial unique index on the unordered pair makes the
// duplicate check atomic: two near-simultaneous sends between the same pair
// cannot both commit.
func (s *Store) CreateFriendRequest(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error) {
	if sender == recipient {
		return nil, ErrInvalidRequest
	}

	req := &models.FriendRequest{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Status:      models.RequestStatusPending,
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, recipient).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)`,
			sender, recipient,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrAlreadyFriends
		}

		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (
			   SELECT 1 FROM friend_requests
			   WHERE status=$3
			     AND ((sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1))
			 )`,
			sender, recipient, models.RequestStatusPending,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrRequestExists
		}

		return tx.QueryRow(ctx,
			`INSERT INTO friend_requests (id, sender_id, recipient_id, status)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at`,
			req.ID, req.SenderID, req.RecipientID, req.Status,
		).Scan(&req.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// lost the race against a concurrent send for the same pair
			return nil, ErrRequestExists
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to insert friend request: %w", err)
	}
	return req, nil
}

// AcceptFriendRequest performs the accept transition as one transaction: lock
// the pending row, check the acting user is the recipient, insert both friend
// edges, delete the row. A concurrent duplicate accept blocks on the row lock
// and then observes ErrNotFound. On success the resolved request is returned.
func (s *Store) AcceptFriendRequest(ctx context.Context, requestID, actingUser uuid.UUID) (*models.FriendRequest, error) {
	req := &models.FriendRequest{ID: requestID, Status: models.RequestStatusAccepted}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT sender_id, recipient_id, created_at FROM friend_requests
			 WHERE id=$1 AND status=$2
			 FOR UPDATE`,
			requestID, models.RequestStatusPending,
		).Scan(&req.SenderID, &req.RecipientID, &req.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if req.RecipientID != actingUser {
			return ErrForbidden
		}

		// Edge inserts are idempotent; a pre-existing edge is not an error.
		if _, err := tx.Exec(ctx,
			`INSERT INTO friendships (user_id, friend_id)
			 VALUES ($1, $2), ($2, $1)
			 ON CONFLICT DO NOTHING`,
			req.SenderID, req.RecipientID,
		); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM friend_requests WHERE id=$1`, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListIncomingRequests returns pending requests addressed to forUser, with
// both parties expanded. The inner joins drop any request whose counterparty
// row has vanished instead of returning a partial record.
func (s *Store) ListIncomingRequests(ctx context.Context, forUser uuid.UUID) ([]models.ExpandedFriendRequest, error) {
	return s.listRequests(ctx, `fr.recipient_id = $1`, forUser)
}

// ListOutgoingRequests returns pending requests sent by forUser, expanded the
// same way.
func (s *Store) ListOutgoingRequests(ctx context.Context, forUser uuid.UUID) ([]models.ExpandedFriendRequest, error) {
	return s.listRequests(ctx, `fr.sender_id = $1`, forUser)
}

func (s *Store) listRequests(ctx context.Context, where string, forUser uuid.UUID) ([]models.ExpandedFriendRequest, error) {
	q := `
	SELECT fr.id, fr.status, fr.created_at,
	       su.id, su.full_name, su.profile_pic, su.native_language, su.learning_language,
	       ru.id, ru.full_name, ru.profile_pic, ru.native_language, ru.learning_language
	FROM friend_requests fr
	JOIN users su ON su.id = fr.sender_id
	JOIN users ru ON ru.id = fr.recipient_id
	WHERE fr.status = 'pending' AND ` + where

	rows, err := s.pool.Query(ctx, q, forUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []models.ExpandedFriendRequest{}
	for rows.Next() {
		var r models.ExpandedFriendRequest
		err := rows.Scan(
			&r.ID, &r.Status, &r.CreatedAt,
			&r.Sender.ID, &r.Sender.FullName, &r.Sender.ProfilePic,
			&r.Sender.NativeLanguage, &r.Sender.LearningLanguage,
			&r.Recipient.ID, &r.Recipient.FullName, &r.Recipient.ProfilePic,
			&r.Recipient.NativeLanguage, &r.Recipient.LearningLanguage,
		)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}
