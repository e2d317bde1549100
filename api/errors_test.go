package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-engine/ledger"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&ledger.NotFoundError{Entity: "wallet"}, http.StatusNotFound, CodeNotFound},
		{ledger.Invalid("amount", "bad"), http.StatusBadRequest, CodeValidation},
		{&ledger.InsufficientFundsError{}, http.StatusUnprocessableEntity, CodeInsufficientFunds},
		{&ledger.ReversalError{Kind: "transfer"}, http.StatusConflict, CodeIrrecoverableReversal},
		{fmt.Errorf("save: %w", ledger.ErrConcurrentModification), http.StatusConflict, CodeConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		status, code := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code)
	}
}

func TestWriteServiceError_HidesInternalErrors(t *testing.T) {
	var logs bytes.Buffer
	h := NewHandler(nil, log.New(&logs, "", 0))
	rec := httptest.NewRecorder()

	h.writeServiceError(rec, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Error)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, logs.String(), "connection refused")
}
