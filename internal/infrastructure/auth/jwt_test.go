package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "workshop-test",
	})
}

func frontdesk() shared.Operator {
	return shared.Operator{ID: uuid.New(), Name: "Lucia", Role: shared.RoleFrontdesk}
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestJWTService()
	op := frontdesk()

	issued, err := svc.Issue(op)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Validate(issued.AccessToken)
	require.NoError(t, err)

	got, err := claims.Operator()
	require.NoError(t, err)
	assert.Equal(t, op, got)
	assert.Equal(t, op.ID.String(), claims.Subject)
}

func TestJWTService_Issue_RejectsIncompleteOperator(t *testing.T) {
	svc := newTestJWTService()

	_, err := svc.Issue(shared.Operator{Role: shared.RoleAdmin})
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = svc.Issue(shared.Operator{ID: uuid.New(), Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWTService_Validate(t *testing.T) {
	svc := newTestJWTService()
	issued, err := svc.Issue(frontdesk())
	require.NoError(t, err)

	sign := func(claims *Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	baseClaims := func() *Claims {
		now := time.Now()
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "workshop-test",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			OperatorID: uuid.NewString(),
			Role:       "mechanic",
		}
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{name: "valid", token: func() string { return issued.AccessToken }},
		{name: "garbage", token: func() string { return "not-a-jwt" }, wantErr: ErrInvalidToken},
		{
			name:    "wrong secret",
			token:   func() string { return sign(baseClaims(), "another-secret-another-secret-xx") },
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: func() string {
				c := baseClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func() string {
				c := baseClaims()
				c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "foreign issuer",
			token: func() string {
				c := baseClaims()
				c.Issuer = "someone-else"
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "unknown role",
			token: func() string {
				c := baseClaims()
				c.Role = "owner"
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name: "missing operator",
			token: func() string {
				c := baseClaims()
				c.OperatorID = ""
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Validate(tt.token())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, claims)
		})
	}
}

func TestClaims_Operator_RoleIsCaseInsensitive(t *testing.T) {
	id := uuid.New()
	op, err := (&Claims{OperatorID: id.String(), Role: "ADMIN"}).Operator()

	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, op.Role)
	assert.Equal(t, id, op.ID)
}
