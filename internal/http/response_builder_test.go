package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	if err := NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]int{"n": 1}).
		Write(w); err != nil {
		t.Fatal(err)
	}

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Body.String() != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_RawAttachment(t *testing.T) {
	w := httptest.NewRecorder()

	_ = NewJSONResponse().
		Raw([]byte("a,b"), "text/csv; charset=utf-8").
		Attachment("money-planner-2025-06-01.csv").
		Write(w)

	if got := w.Header().Get("Content-Type"); got != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="money-planner-2025-06-01.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if w.Body.String() != "a,b" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		builder  *JSONResponseBuilder
		wantCode int
		wantBody string
	}{
		{"validation", ValidationError("invalid-amount"), http.StatusUnprocessableEntity, `{"error":"invalid-amount"}`},
		{"bad request", BadRequestError("malformed-body"), http.StatusBadRequest, `{"error":"malformed-body"}`},
		{"internal", InternalError(), http.StatusInternalServerError, `{"error":"internal"}`},
		{"custom", ErrorResponse(http.StatusTooManyRequests, "rate-limited"), http.StatusTooManyRequests, `{"error":"rate-limited"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			_ = tt.builder.Write(w)
			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestJSONResponseBuilder_EmptyBody(t *testing.T) {
	w := httptest.NewRecorder()
	_ = NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}
