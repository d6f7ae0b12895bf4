package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sasm-ims-api/internal/models"
	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

func TestLookupError(t *testing.T) {
	notFound := appErrors.FromError(lookupError(sql.ErrNoRows, "leave not found", "failed to load leave"))
	assert.Equal(t, http.StatusNotFound, notFound.Status)
	assert.Equal(t, "leave not found", notFound.Message)

	failure := appErrors.FromError(lookupError(errors.New("conn reset"), "leave not found", "failed to load leave"))
	assert.Equal(t, http.StatusInternalServerError, failure.Status)
	assert.Equal(t, "failed to load leave", failure.Message)
}

func TestInternalErrorCancelledContext(t *testing.T) {
	err := appErrors.FromError(internalError(fmt.Errorf("query: %w", context.Canceled), "failed to count leaves"))
	assert.Equal(t, appErrors.ErrUnavailable.Code, err.Code)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOfficeScope(t *testing.T) {
	office, err := officeScope(&models.JWTClaims{Role: models.RoleHR}, "Clinic")
	assert.NoError(t, err)
	assert.Equal(t, "Clinic", office)

	office, err = officeScope(&models.JWTClaims{Role: models.RoleOffice, Office: "Library"}, "Clinic")
	assert.NoError(t, err)
	assert.Equal(t, "Library", office)

	_, err = officeScope(&models.JWTClaims{Role: models.RoleOffice}, "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = officeScope(&models.JWTClaims{Role: models.RoleStudent}, "Library")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = officeScope(nil, "")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
