package driven

import (
	"context"
	"errors"

	"github.com/kzap42/worknotes/internal/domain/model"
)

// ErrNoRefreshToken is returned by the token lifecycle when a refresh is
// attempted without a refresh token or without stored provider config.
var ErrNoRefreshToken = errors.New("no refresh token or provider config available")

// TokenRefresher defines the driven port for exchanging a refresh token for a
// fresh access token at the provider's token endpoint. Implementations make a
// single attempt; retry policy belongs to the caller.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string, cfg model.ProviderConfig) (*model.TokenPayload, error)
}
