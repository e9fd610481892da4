package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"incident_extract/extract"
	"incident_extract/internal/events"
	"incident_extract/internal/pipeline"
	"incident_extract/internal/store"
	"incident_extract/llm"
	"incident_extract/metrics"
)

func setupTest(t *testing.T, reply string) (http.Handler, *store.Store) {
	h, st, _ := setupWithEvents(t, reply)
	return h, st
}

func setupWithEvents(t *testing.T, reply string) (http.Handler, *store.Store, *events.Bus) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	var model *extract.ModelExtractor
	if reply != "" {
		fake := llm.CompleterFunc{Label: "fake", Fn: func(ctx context.Context, system, user string) (string, error) {
			return reply, nil
		}}
		model = extract.NewModelExtractor(fake, nil)
	}
	m := metrics.New()
	bus := events.NewBus()
	router := NewRouter(Deps{
		Events:  bus,
		Service: extract.NewService(nil, model, m),
		Store:   st,
		Results: pipeline.NewResults(st, filepath.Join(t.TempDir(), "results")),
		Metrics: m,
	})
	return router.Handler(), st, bus
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestExtractInsightsWithModel(t *testing.T) {
	h, _ := setupTest(t, "결과: {\"facility_location\": [\"판매/업무\"], \"hazards\": [\"연기\"], \"incident_type\": \"화재\"} 끝")
	rr := do(t, h, http.MethodPost, "/extract", `{"text":"지하 1층 상가에서 화재가 났어요","mode":"insights"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body)
	}
	var out struct {
		Model    string `json:"model"`
		Recovery string `json:"recovery"`
		Keywords struct {
			FacilityLocation []string `json:"facility_location"`
		} `json:"keywords"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Model != "fake(hybrid)" || out.Recovery != "slice" {
		t.Fatalf("unexpected labels %+v", out)
	}
	sort.Strings(out.Keywords.FacilityLocation)
	if strings.Join(out.Keywords.FacilityLocation, ",") != "지하,판매/업무" {
		t.Fatalf("facility_location=%v", out.Keywords.FacilityLocation)
	}
}

func TestExtractBothAndSave(t *testing.T) {
	h, st := setupTest(t, "")
	rr := do(t, h, http.MethodPost, "/extract?save=true", `{"text":"아파트 5층 화재","mode":"both"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body)
	}
	var out map[string]struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["facts"].Model != "rules(strict)" || out["insights"].Model != "rules(hybrid)" {
		t.Fatalf("unexpected models %+v", out)
	}
	if _, err := st.GetExtraction(context.Background(), out["facts"].ID); err != nil {
		t.Fatalf("facts result not stored: %v", err)
	}

	rr = do(t, h, http.MethodGet, "/results/"+out["insights"].ID, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"kind":"extraction"`) {
		t.Fatalf("unexpected result lookup %d: %s", rr.Code, rr.Body)
	}
}

func TestErrorMapping(t *testing.T) {
	h, _ := setupTest(t, "")
	var cases = []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/extract", `{"text":"   "}`, http.StatusBadRequest},
		{http.MethodPost, "/extract", `{"text":"화재","mode":"guess"}`, http.StatusBadRequest},
		{http.MethodPost, "/extract", `not json`, http.StatusBadRequest},
		{http.MethodPost, "/normalize-nested", `{"injpsn_cnt":"-2"}`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/normalize-from-transcript", `{"text":""}`, http.StatusBadRequest},
		{http.MethodGet, "/results/nope", ``, http.StatusNotFound},
		{http.MethodGet, "/extract", ``, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rr := do(t, h, tc.method, tc.path, tc.body)
		if rr.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, rr.Code, rr.Body)
		}
	}
}

func TestModelFailureIsBadGateway(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	broken := llm.CompleterFunc{Label: "broken", Fn: func(ctx context.Context, system, user string) (string, error) {
		return "", llm.ErrEmptyCompletion
	}}
	h := NewRouter(Deps{
		Service: extract.NewService(nil, extract.NewModelExtractor(broken, nil), nil),
		Store:   st,
	}).Handler()
	rr := do(t, h, http.MethodPost, "/extract", `{"text":"화재","mode":"facts"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestNormalizeNestedSave(t *testing.T) {
	h, _ := setupTest(t, "")
	rr := do(t, h, http.MethodPost, "/normalize-nested?save=true", `{"fire_data_pk": 9, "grnd_nofl": "3", "rcpt_dt": "20240101120000"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body)
	}
	var out struct {
		ID     string `json:"id"`
		Record struct {
			FireDataPK int `json:"fire_data_pk"`
			Info       struct {
				ReportDatetime string `json:"report_datetime"`
			} `json:"info"`
		} `json:"record"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.ID == "" || out.Record.FireDataPK != 9 || out.Record.Info.ReportDatetime != "2024-01-01 12:00:00" {
		t.Fatalf("unexpected response %s", rr.Body)
	}
	rr = do(t, h, http.MethodGet, "/results/"+out.ID, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"kind":"normalized"`) {
		t.Fatalf("unexpected lookup %d: %s", rr.Code, rr.Body)
	}
}

func TestNormalizeFromTranscript(t *testing.T) {
	h, _ := setupTest(t, "")
	rr := do(t, h, http.MethodPost, "/normalize-from-transcript", `{"text":"아파트 3층에서 불이 났어요","fire_data_pk":5,"report_datetime":"2024-05-01 10:00:00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body)
	}
	body := rr.Body.String()
	for _, want := range []string{`"fire_data_pk":5`, `"ignition_floor":3`, `"building_usage_status":"공동주택"`, `"report_datetime":"2024-05-01 10:00:00"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func TestHealthAndCORS(t *testing.T) {
	h, _ := setupTest(t, "")
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected health response %d %v", rr.Code, rr.Header())
	}
	rr = do(t, h, http.MethodOptions, "/extract", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/ops/health", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/ops/status", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"metrics"`) {
		t.Fatalf("unexpected status body %s", rr.Body)
	}
}

func TestEventsStreamsSavedResults(t *testing.T) {
	h, _, _ := setupWithEvents(t, "")
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	post, err := http.Post(srv.URL+"/normalize-nested?save=true", "application/json", strings.NewReader(`{"grnd_nofl":"1"}`))
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event: ") {
			if line != "event: normalized" {
				t.Fatalf("unexpected event line %q", line)
			}
			return
		}
	}
	t.Fatalf("stream ended without an event: %v", sc.Err())
}
