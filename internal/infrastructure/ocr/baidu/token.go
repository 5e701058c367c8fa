package baidu

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

// TokenStore owns the OCR access token for the lifetime of a run. The token is
// refreshed explicitly; expiry is recorded but never triggers renewal.
type TokenStore struct {
	client *Client
	now    func() time.Time

	mu   sync.RWMutex
	cred domain.Credential
}

func NewTokenStore(client *Client) *TokenStore {
	return &TokenStore{client: client, now: time.Now}
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (s *TokenStore) Refresh(ctx context.Context) (domain.Credential, error) {
	if s.client.apiKey == "" || s.client.secretKey == "" {
		return domain.Credential{}, domain.WrapError(domain.ErrConfig, "baidu token", errors.New("api key and secret key required"))
	}

	endpoint, err := url.Parse(s.client.tokenURL)
	if err != nil {
		return domain.Credential{}, domain.WrapError(domain.ErrConfig, "baidu token", fmt.Errorf("parse token url: %w", err))
	}
	query := endpoint.Query()
	query.Set("grant_type", "client_credentials")
	query.Set("client_id", s.client.apiKey)
	query.Set("client_secret", s.client.secretKey)
	endpoint.RawQuery = query.Encode()

	var response tokenResponse
	call := func(callCtx context.Context) error {
		return s.client.postForm(callCtx, endpoint.String(), nil, &response, "token")
	}
	if err := s.client.execute(ctx, "baidu.token", call); err != nil {
		return domain.Credential{}, domain.WrapError(domain.ErrAuth, "baidu token", err)
	}

	if response.Error != "" {
		return domain.Credential{}, domain.WrapError(domain.ErrAuth, "baidu token",
			fmt.Errorf("%s: %s", response.Error, strings.TrimSpace(response.ErrorDescription)))
	}
	token := strings.TrimSpace(response.AccessToken)
	if token == "" {
		return domain.Credential{}, domain.WrapError(domain.ErrAuth, "baidu token", errors.New("response carried no access_token"))
	}

	cred := domain.Credential{Token: token}
	if response.ExpiresIn > 0 {
		cred.ExpiresAt = s.now().Add(time.Duration(response.ExpiresIn) * time.Second)
	}

	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()
	return cred, nil
}

// Current returns the last refreshed credential, if any.
func (s *TokenStore) Current() (domain.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.cred.Valid()
}
