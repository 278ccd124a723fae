package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Claims is the access token shape issued by the identity service.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// TokenVerifier checks HS256 access tokens.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenVerifier creates a verifier. An empty issuer or audience is not checked.
func NewTokenVerifier(secret, issuer, audience string) (*TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

// Verify parses the token and validates its registered and custom claims.
func (v *TokenVerifier) Verify(tokenString string, now time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	if claims.UserID == "" {
		return Claims{}, errors.New("user_id missing")
	}
	if claims.WorkspaceID == "" {
		return Claims{}, errors.New("workspace_id missing")
	}
	return claims, nil
}

// Issue signs an access token. Used by tooling and tests; production tokens
// come from the identity service.
func (v *TokenVerifier) Issue(now time.Time, userID, workspaceID, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// RequireCaller verifies the bearer token and resolves the workspace member
// acting in the request. The member's role wins over the token role.
func RequireCaller(v *TokenVerifier, members storage.MemberDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if !strings.HasPrefix(raw, bearerPrefix) {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := v.Verify(strings.TrimPrefix(raw, bearerPrefix), time.Now())
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("Rejected access token", zap.Error(err))
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		ctx := tenant.WithWorkspaceID(c.Request.Context(), claims.WorkspaceID)
		member, err := members.ResolveMember(ctx, claims.WorkspaceID, claims.UserID)
		if err != nil {
			if apperrors.IsNotFoundError(err) {
				abortWithError(c, apperrors.Forbidden("user %s is not a member of workspace %s", claims.UserID, claims.WorkspaceID))
				return
			}
			abortWithError(c, err)
			return
		}

		role := member.Role
		if role == "" {
			role = claims.Role
		}
		c.Request = c.Request.WithContext(tenant.WithCaller(ctx, tenant.Caller{
			UserID:      claims.UserID,
			MemberID:    member.ID,
			WorkspaceID: claims.WorkspaceID,
			Role:        role,
		}))
		c.Next()
	}
}
