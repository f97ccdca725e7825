package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", NewNotFound("track", 3), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", NewNotFound("module", 1)), http.StatusNotFound},
		{"locked", &ModuleLockedError{ModuleID: 4}, http.StatusForbidden},
		{"date range", &InvalidDateRangeError{Reason: "start_date is after end_date"}, http.StatusBadRequest},
		{"credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"email", ErrEmailRegistered, http.StatusConflict},
		{"already issued", &AlreadyIssuedError{UserID: 1, TrackID: 2}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleError(c, tc.err)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestHandleError_LockedCarriesModuleID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	HandleError(c, &ModuleLockedError{ModuleID: 42})

	body := decode(t, w)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), data["module_id"])
}

func TestValidationError_MalformedBody(t *testing.T) {
	RegisterJSONFieldNames()

	type req struct {
		ModuleID uint `json:"module_id" binding:"required"`
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set("Content-Type", "application/json")

	var r req
	err := c.ShouldBindJSON(&r)
	require.Error(t, err)
	ValidationError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	// 空 body 属于解析错误，不是字段校验错误
	assert.NotEmpty(t, body["message"])
}

func TestValidationError_RendersFields(t *testing.T) {
	RegisterJSONFieldNames()

	type req struct {
		ModuleID uint `json:"module_id" binding:"required"`
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var r req
	err := binding.Validator.ValidateStruct(&r)
	require.Error(t, err)
	ValidationError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	fields, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, fields, 1)
	field := fields[0].(map[string]interface{})
	assert.Equal(t, "module_id", field["field"])
	assert.Equal(t, "required", field["rule"])
}
