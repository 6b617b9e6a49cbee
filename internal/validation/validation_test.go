package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIsValidAccountID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"0.0.1234", true},
		{"0.0.98", true},
		{"1.2.3", true},
		{"0x1234567890123456789012345678901234567890", true},
		{"0xabcdefABCDEF1234567890123456789012345678", true},

		{"", false},
		{"0.0", false},
		{"0.0.abc", false},
		{"0.0.1234.5", false},
		{"0x1234", false},
		{"0.0.1234; DROP TABLE", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.valid, IsValidAccountID(tc.id), "IsValidAccountID(%q)", tc.id)
	}
}

func TestSanitizeAccountID(t *testing.T) {
	assert.Equal(t, "0.0.1234", SanitizeAccountID("  0.0.1234 "))
	assert.Equal(t, "0xabcdef1234567890123456789012345678901234",
		SanitizeAccountID("0xABCDEF1234567890123456789012345678901234"))
}

func TestValidate(t *testing.T) {
	errs := Validate(
		Required("accountId", ""),
		ValidAccountID("counterparty", "nope"),
		ValidAccountID("optional", ""),
	)
	assert.Len(t, errs, 2)
	assert.Equal(t, "accountId: is required", errs.Error())
}

func TestValidAccountIDs(t *testing.T) {
	assert.Nil(t, ValidAccountIDs("accountIds", []string{"0.0.1", "0.0.2"})())

	err := ValidAccountIDs("accountIds", nil)()
	assert.NotNil(t, err)

	err = ValidAccountIDs("accountIds", []string{"0.0.1", "bad"})()
	if assert.NotNil(t, err) {
		assert.Equal(t, "accountIds[1]", err.Field)
	}

	tooMany := make([]string, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = "0.0.1"
	}
	err = ValidAccountIDs("accountIds", tooMany)()
	if assert.NotNil(t, err) {
		assert.True(t, strings.Contains(err.Message, "at most"))
	}
}

func TestAccountParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/risk/:account", AccountParamMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		path string
		want int
	}{
		{"/risk/0.0.1234", http.StatusOK},
		{"/risk/0x1234567890123456789012345678901234567890", http.StatusOK},
		{"/risk/not-an-account", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestSizeMiddleware(16))
	r.POST("/batch", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/batch",
		strings.NewReader(`{"accountIds":["0.0.1","0.0.2","0.0.3"]}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
