package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhq/hms-core/internal/model"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewTokenService("test-secret", 1)
	user := &model.User{
		Base:        model.Base{ID: uuid.New()},
		Username:    "jdoe",
		IsSuperuser: true,
	}

	token, err := svc.Generate(user)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "jdoe", claims.Username)
	assert.True(t, claims.IsSuperuser)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", 1).Generate(&model.User{Base: model.Base{ID: uuid.New()}})
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", 1).Validate(token)
	assert.Error(t, err)
}
