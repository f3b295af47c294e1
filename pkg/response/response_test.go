package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SuccessResponse(c, gin.H{"ok": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":20000,"message":"success","data":{"ok":true}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ErrorResponse(c, http.StatusConflict, ErrCodeNotConnected, "")

	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrCodeNotConnected, body.Code)
	assert.Equal(t, "not connected", body.Message)
	assert.Nil(t, body.Data)
	assert.True(t, c.IsAborted())
}

func TestMessageUnknownCode(t *testing.T) {
	assert.Equal(t, "unknown error", Message(12345))
}
