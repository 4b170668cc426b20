// internal/realtime/stream.go
package realtime

import (
	"context"
	"fmt"
	"time"

	stream "github.com/GetStream/stream-chat-go/v5"

	"github.com/peerlingo/peerlingo/internal/models"
)

// TokenProvider is the boundary to the hosted chat/video platform. The
// backend never touches message delivery or call signaling; it only mints
// user-scoped tokens and mirrors profile data so the platform can render
// chat participants.
type TokenProvider interface {
	// CreateToken mints a credential scoped to one user.
	CreateToken(userID string) (string, error)

	// UpsertUser mirrors the user's display profile to the platform.
	UpsertUser(ctx context.Context, user *models.User) error
}

// StreamProvider wraps the Stream chat SDK client. Construct it once at
// startup and inject it; a missing key or secret is a configuration error,
// not something to recover from per request.
type StreamProvider struct {
	client *stream.Client
	ttl    time.Duration
}

// NewStreamProvider validates the credentials and builds the SDK client.
// ttl bounds the lifetime of issued tokens; 0 means the platform default.
func NewStreamProvider(apiKey, apiSecret string, ttl time.Duration) (*StreamProvider, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("stream api key or secret is missing")
	}
	client, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream client: %w", err)
	}
	return &StreamProvider{client: client, ttl: ttl}, nil
}

func (p *StreamProvider) CreateToken(userID string) (string, error) {
	var expire time.Time
	if p.ttl > 0 {
		expire = time.Now().Add(p.ttl)
	}
	token, err := p.client.CreateToken(userID, expire)
	if err != nil {
		return "", fmt.Errorf("failed to create stream token: %w", err)
	}
	return token, nil
}

func (p *StreamProvider) UpsertUser(ctx context.Context, user *models.User) error {
	_, err := p.client.UpsertUser(ctx, &stream.User{
		ID:    user.ID.String(),
		Name:  user.FullName,
		Image: user.ProfilePic,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert stream user: %w", err)
	}
	return nil
}
