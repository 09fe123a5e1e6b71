package mocks

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"gitlab.com/acme/acme-auth/internal/domain/account"
)

// Provider is an in-memory OAuth provider. Codes registered with Grant
// exchange for the given identity when presented with the matching verifier.
type Provider struct {
	id     account.ProviderID
	grants map[string]grant
	mu     sync.Mutex
	err    error
}

type grant struct {
	verifier string
	identity account.Identity
	tokens   account.Tokens
}

func NewProvider(id account.ProviderID) *Provider {
	return &Provider{
		id:     id,
		grants: make(map[string]grant),
	}
}

func (p *Provider) ID() account.ProviderID {
	return p.id
}

func (p *Provider) AuthCodeURL(state, verifier string) string {
	q := url.Values{}
	q.Set("state", state)
	q.Set("code_challenge_method", "S256")
	return "https://accounts.example.com/o/oauth2/auth?" + q.Encode()
}

func (p *Provider) Exchange(ctx context.Context, code, verifier string) (account.Identity, account.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return account.Identity{}, account.Tokens{}, p.err
	}
	g, ok := p.grants[code]
	if !ok || g.verifier != verifier {
		return account.Identity{}, account.Tokens{}, errors.New("invalid_grant")
	}
	delete(p.grants, code)
	return g.identity, g.tokens, nil
}

func (p *Provider) Grant(code, verifier string, identity account.Identity, tokens account.Tokens) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.grants[code] = grant{verifier: verifier, identity: identity, tokens: tokens}
	return p
}

func (p *Provider) FailWith(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.err = err
	return p
}
