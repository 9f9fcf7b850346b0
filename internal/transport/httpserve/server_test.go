package httpserve

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	mk := func(name string, role feature.Role, buckets int) feature.Feature {
		f, err := feature.New(name, role, buckets)
		if err != nil {
			t.Fatal(err)
		}
		return f
	}
	spec, err := feature.NewSpec([]feature.Feature{
		mk("age", feature.Numeric, 0),
		mk("sex", feature.Categorical, 0),
		mk("hours", feature.Bucketized, 4),
	})
	if err != nil {
		t.Fatal(err)
	}

	p := params.New([]params.Feature{
		params.NewScaleFeature("age", params.NewScale(17, 90)),
		params.NewVocabFeature("sex", feature.Categorical, params.NewVocabulary([]string{"Male", "Female"})),
		params.NewBucketFeature("hours", params.Buckets{Boundaries: []float64{25, 35, 50}}),
	})

	return NewServer(spec, p, zap.NewNop())
}

func postTransform(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/transform", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTransformEndpoint(t *testing.T) {
	h := testServer(t).Handler()

	rec := postTransform(t, h, `{"record": {"age": 53.5, "sex": "Female", "hours": 50}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Record map[string]float64 `json:"record"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if got := resp.Record["age_xf"]; got != 0.5 {
		t.Errorf("age_xf = %v, want 0.5", got)
	}
	if got := resp.Record["sex_xf"]; got != 2 {
		t.Errorf("sex_xf = %v, want 2", got)
	}
	// 50 sits on a boundary and stays in the lower bucket.
	if got := resp.Record["hours_xf"]; got != 2 {
		t.Errorf("hours_xf = %v, want 2", got)
	}
}

func TestTransformEndpoint_MissingValue(t *testing.T) {
	h := testServer(t).Handler()

	rec := postTransform(t, h, `{"record": {"age": null, "sex": "Male", "hours": 30}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp transformResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if got := resp.Record["age_xf"]; got != -1 {
		t.Errorf("age_xf = %v, want -1 sentinel", got)
	}
}

func TestTransformEndpoint_Errors(t *testing.T) {
	h := testServer(t).Handler()

	tests := []struct {
		desc     string
		body     string
		status   int
		wantCode string
	}{
		{"malformed json", `{`, http.StatusBadRequest, "bad_request"},
		{"no record", `{}`, http.StatusBadRequest, "validation_failed"},
		{"bool value", `{"record": {"age": true}}`, http.StatusBadRequest, "validation_failed"},
		{"undeclared feature", `{"record": {"age": 30, "sex": "Male", "hours": 30, "extra": 1}}`,
			http.StatusBadRequest, "schema_mismatch"},
		{"type disagreement", `{"record": {"age": "old", "sex": "Male", "hours": 30}}`,
			http.StatusBadRequest, "schema_mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			rec := postTransform(t, h, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.status, rec.Body.String())
			}
			var er errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
				t.Fatal(err)
			}
			if er.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", er.Code, tt.wantCode)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	h := testServer(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequestIDPropagated(t *testing.T) {
	h := testServer(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}
