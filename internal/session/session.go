// Package session turns the health service's bearer token into an explicit
// Session value that handlers receive through the request context.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Session is the signed-in user as seen by the planner API.
type Session struct {
	Token    string `json:"-"`
	UserID   int    `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Verifier confirms a token with the service that issued it. Rejections wrap
// ErrInvalidToken; any other error means the service couldn't be asked.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Session, error)
}

// cacheTTL bounds how long a remotely verified token is trusted without
// asking again.
const cacheTTL = 5 * time.Minute

// cachePruneSize is the cache size above which expired entries are swept on
// insert.
const cachePruneSize = 256

type cachedSession struct {
	session Session
	expires time.Time
}

// Parser reads health service tokens. With a secret it verifies the HS256
// signature locally. Without one every token is confirmed by the Verifier,
// and confirmed tokens are cached for cacheTTL.
type Parser struct {
	secret []byte
	remote Verifier
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSession
}

func NewParser(secret string, remote Verifier) *Parser {
	p := &Parser{
		remote: remote,
		now:    time.Now,
		cache:  make(map[string]cachedSession),
	}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p
}

// Parse builds a Session from a raw token. The token carries user_id and
// email claims.
func (p *Parser) Parse(ctx context.Context, raw string) (Session, error) {
	if p.secret != nil {
		return p.parseSigned(raw)
	}

	// Reject anything that isn't even a JWT before asking the service.
	if _, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{}); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if p.remote == nil {
		return Session{}, fmt.Errorf("%w: no way to verify token", ErrInvalidToken)
	}

	if s, ok := p.cached(raw); ok {
		return s, nil
	}
	s, err := p.remote.VerifyToken(ctx, raw)
	if err != nil {
		return Session{}, err
	}
	if s.UserID <= 0 {
		return Session{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	s.Token = raw
	p.store(raw, s)
	return s, nil
}

func (p *Parser) parseSigned(raw string) (Session, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := UserIDClaim(claims["user_id"])
	if err != nil {
		return Session{}, err
	}
	email, _ := claims["email"].(string)
	return Session{Token: raw, UserID: userID, Email: email}, nil
}

func (p *Parser) cached(raw string) (Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.cache[raw]
	if !ok {
		return Session{}, false
	}
	if !p.now().Before(c.expires) {
		delete(p.cache, raw)
		return Session{}, false
	}
	return c.session, true
}

func (p *Parser) store(raw string, s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if len(p.cache) >= cachePruneSize {
		for k, c := range p.cache {
			if !now.Before(c.expires) {
				delete(p.cache, k)
			}
		}
	}
	p.cache[raw] = cachedSession{session: s, expires: now.Add(cacheTTL)}
}

// UserIDClaim accepts the numeric claim (JSON numbers decode as float64) or
// a numeric string.
func UserIDClaim(v any) (int, error) {
	switch id := v.(type) {
	case float64:
		if id > 0 {
			return int(id), nil
		}
	case string:
		if n, err := strconv.Atoi(id); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
}
