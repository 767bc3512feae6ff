package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/dialect"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"nil", nil, "", 0},
		{"unknown dialect", &dialect.UnknownDialectError{Name: "x.foo", Extension: "foo"}, "DIA001", http.StatusBadRequest},
		{"invalid dialect", fmt.Errorf("%w: delimiter equals quote", dialect.ErrInvalidDialect), "DIA002", http.StatusBadRequest},
		{"malformed wrapped", fmt.Errorf("read: %w", &codec.MalformedRecordError{Line: 3, Expected: 2, Got: 3}), "REC001", http.StatusUnprocessableEntity},
		{"unterminated quote", &codec.ParseError{Line: 2, Column: 1, Err: codec.ErrUnterminatedQuote}, "REC002", http.StatusUnprocessableEntity},
		{"unrepresentable", fmt.Errorf("write: %w", codec.ErrUnrepresentable), "REC003", http.StatusUnprocessableEntity},
		{"encoding", &codec.EncodingError{Encoding: "utf-8", Offset: 7}, "ENC001", http.StatusUnprocessableEntity},
		{"body too large", &http.MaxBytesError{Limit: 10}, "REQ001", http.StatusRequestEntityTooLarge},
		{"missing param", missingParam("from"), "REQ002", http.StatusBadRequest},
		{"cancelled", context.Canceled, "REQ003", http.StatusServiceUnavailable},
		{"busy", ErrBusy, "BUSY001", http.StatusServiceUnavailable},
		{"other", errors.New("disk on fire"), "ERR000", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode || got.Status != tt.wantStatus {
				t.Errorf("MapError() = %s/%d, want %s/%d", got.Code, got.Status, tt.wantCode, tt.wantStatus)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil is user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unmapped error is user facing")
	}
	if !IsUserFacing(ErrBusy) {
		t.Error("ErrBusy is not user facing")
	}
}
