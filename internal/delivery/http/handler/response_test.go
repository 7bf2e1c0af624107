package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   domain.Kind
		wantMsg    string
	}{
		{"validation", domain.ErrPhotoLimit, http.StatusBadRequest, domain.KindValidation, "photo limit reached"},
		{"not found", domain.ErrMatchNotFound, http.StatusNotFound, domain.KindNotFound, "match not found"},
		{"unavailable target", domain.ErrTargetUnavailable, http.StatusNotFound, domain.KindUnavailable, "user is not available"},
		{"forbidden", domain.ErrMatchInactive, http.StatusForbidden, domain.KindForbidden, "match is no longer active"},
		{"precondition", domain.ErrLocationRequired, http.StatusPreconditionFailed, domain.KindPrecondition, "location required"},
		{"exists", domain.ErrAlreadyLiked, http.StatusConflict, domain.KindExists, "user already liked"},
		{"invalid operation", domain.ErrCannotLikeSelf, http.StatusUnprocessableEntity, domain.KindInvalidOp, "cannot like yourself"},
		{"unauthorized", domain.ErrInvalidToken, http.StatusUnauthorized, domain.KindUnauthorized, "invalid or expired token"},
		{"wrapped", fmt.Errorf("lookup: %w", domain.ErrProfileNotFound), http.StatusNotFound, domain.KindNotFound, "lookup: profile not found"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, domain.KindInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode || body.Error != tt.wantMsg {
				t.Errorf("body = %+v, want code %s message %q", body, tt.wantCode, tt.wantMsg)
			}
		})
	}
}
