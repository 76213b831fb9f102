package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetStatusAndType(t *testing.T) {
	cases := []struct {
		err      *Error
		status   int
		errType  string
	}{
		{InvalidRequest("bad"), http.StatusBadRequest, "invalid_request_error"},
		{ModelNotSupported("bad"), http.StatusBadRequest, "model_not_supported"},
		{ModelInitFailure("bad"), http.StatusInternalServerError, "model_init_failure"},
		{UpstreamFailure("bad"), http.StatusBadGateway, "upstream_failure"},
		{Timeout("bad"), http.StatusGatewayTimeout, "timeout"},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, c.err.Status)
		assert.Equal(t, c.errType, c.err.Type)
	}
}

func TestWriteKnownError(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, ModelNotSupported("Unsupported model: foo"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "model_not_supported", body.Error.Type)
	assert.Equal(t, "Unsupported model: foo", body.Error.Message)
}

func TestWriteUnknownErrorFallsBackTo500(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error.Type)
}
