package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
)

const actorKey = "actor"

// Actor headers set by a trusted upstream identity proxy
const (
	HeaderAuthActor = "X-Auth-Actor"
	HeaderAuthRole  = "X-Auth-Role"
)

type tokenEntry struct {
	hash  [sha256.Size]byte
	actor string
	role  string
}

// Authenticator resolves the verified (actor, role) pair of a request
type Authenticator struct {
	tokens       []tokenEntry
	trustHeaders bool
}

func NewAuthenticator(tokens []config.APIToken, trustHeaders bool) *Authenticator {
	a := &Authenticator{trustHeaders: trustHeaders}
	for _, t := range tokens {
		if t.Role != model.RoleAdmin && t.Role != model.RoleRead {
			log.Printf("[Auth] Ignoring token for %s with unknown role %q", t.Actor, t.Role)
			continue
		}
		a.tokens = append(a.tokens, tokenEntry{hash: sha256.Sum256([]byte(t.Token)), actor: t.Actor, role: t.Role})
	}
	if len(a.tokens) == 0 && !trustHeaders {
		log.Printf("[Auth] Warning: no API tokens configured and header trust disabled, every API call will be rejected")
	}
	return a
}

// HashToken returns the hex sha256 of a bearer token, used in logs instead of the token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (a *Authenticator) lookup(token string) (tokenEntry, bool) {
	sum := sha256.Sum256([]byte(token))
	var found tokenEntry
	ok := false
	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare(sum[:], t.hash[:]) == 1 {
			found, ok = t, true
		}
	}
	return found, ok
}

// Middleware rejects requests without a verified actor and stores the actor on the context
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := a.resolve(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"detail":  (&model.AuthenticationError{}).Error(),
				})
			}
			actor.IP = c.RealIP()
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

func (a *Authenticator) resolve(c echo.Context) (model.Actor, bool) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if t, ok := a.lookup(token); ok {
			return model.Actor{ID: t.actor, Role: t.role}, true
		}
		log.Printf("[Auth] Rejected unknown token %s from %s", HashToken(token)[:12], c.RealIP())
		return model.Actor{}, false
	}

	if a.trustHeaders {
		id := strings.TrimSpace(c.Request().Header.Get(HeaderAuthActor))
		role := strings.ToLower(strings.TrimSpace(c.Request().Header.Get(HeaderAuthRole)))
		if id != "" && (role == model.RoleAdmin || role == model.RoleRead) {
			return model.Actor{ID: id, Role: role}, true
		}
	}
	return model.Actor{}, false
}

// RequireRole enforces admin for mutating methods and read (or admin) for everything else
func RequireRole() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"detail":  (&model.AuthenticationError{}).Error(),
				})
			}
			required := model.RoleRead
			allowed := actor.CanRead()
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				required = model.RoleAdmin
				allowed = actor.CanWrite()
			}
			// Dry-run validation writes nothing
			if c.Path() == "/api/v1/config/validate" {
				required = model.RoleRead
				allowed = actor.CanRead()
			}
			if !allowed {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"success": false,
					"detail":  (&model.AuthorizationError{Role: actor.Role, Required: required}).Error(),
				})
			}
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by the auth middleware
func ActorFrom(c echo.Context) (model.Actor, bool) {
	actor, ok := c.Get(actorKey).(model.Actor)
	return actor, ok
}
