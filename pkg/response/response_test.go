package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestErrorHidesInternalCause(t *testing.T) {
	c, rec := testContext()
	Error(c, errors.New("pq: relation \"scholars\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Len(t, c.Errors, 1)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestErrorClientFailureNotRecorded(t *testing.T) {
	c, rec := testContext()
	Error(c, appErrors.Clone(appErrors.ErrNotFound, "scholar not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "scholar not found")
	assert.Empty(t, c.Errors)
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	c, rec := testContext()
	JSON(c, http.StatusOK, gin.H{"id": "sch-1"}, nil, map[string]interface{}{})

	assert.JSONEq(t, `{"data":{"id":"sch-1"}}`, rec.Body.String())
}
