package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/authorizerdev/authorizer-go"

	"github.com/pairworks/tpsflow/internal/config"
	"github.com/pairworks/tpsflow/internal/utils"
)

var (
	authClient *authorizer.AuthorizerClient
	authOnce   sync.Once
)

// SessionUser is the authenticated identity extracted from a validated
// Authorizer session.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client (singleton pattern)
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	var initErr error

	authOnce.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(cfg.AuthzURL, cfg.AuthzPingTimeout); err != nil {
			initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			cfg.AuthzURL, cfg.AuthzClientID, redirectURL)

		var err error
		authClient, err = authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
	})

	return initErr
}

// ValidateSession validates a session cookie for the given roles and
// returns the authenticated user.
func ValidateSession(cookie string, roles []string) (*SessionUser, error) {
	if authClient == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := authClient.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	// The SDK's user type mirrors the GraphQL payload; go through JSON to
	// pick out the identity fields.
	raw, err := json.Marshal(res.User)
	if err != nil {
		return nil, fmt.Errorf("failed to read session user: %w", err)
	}
	var user SessionUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to read session user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("session carries no user id")
	}

	return &user, nil
}
