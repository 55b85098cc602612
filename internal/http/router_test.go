package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"speech-dictation-service/internal/docstore"
	"speech-dictation-service/internal/docstore/memory"
	"speech-dictation-service/internal/events"
	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/service/persist"
	"speech-dictation-service/internal/service/recognition/mock"
	"speech-dictation-service/internal/service/results"
	"speech-dictation-service/internal/service/session"
	"speech-dictation-service/internal/service/synthesis"
)

func newTestServer(t *testing.T) (*httptest.Server, *results.Store) {
	t.Helper()
	res := results.New()
	syncer := persist.New(func(ctx context.Context) (docstore.Store, error) {
		return memory.New(), nil
	}, res)
	controller := session.New(session.Options{
		Engine:      mock.New(),
		Synthesizer: synthesis.NewLogSynth(),
		Syncer:      syncer,
		Results:     res,
		Publisher:   events.New(nil),
		Locale:      "th-TH",
		SpeakRate:   0.9,
	})
	controller.Startup(context.Background())

	srv := httptest.NewServer(NewRouter(context.Background(), controller))
	t.Cleanup(srv.Close)
	return srv, res
}

func getJSON(t *testing.T, url string, into any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestStateEndpoint(t *testing.T) {
	srv, res := newTestServer(t)
	conf := 0.9
	res.Append(models.Hypothesis{Text: "ขายน้ำ 20 บาท", Confidence: &conf})

	var snap session.Snapshot
	getJSON(t, srv.URL+"/v1/state", &snap)

	if !snap.Supported {
		t.Error("Supported = false")
	}
	if !snap.RemoteReady {
		t.Error("RemoteReady = false")
	}
	if len(snap.Records) != 1 || snap.Records[0].Text != "ขายน้ำ 20 บาท" {
		t.Errorf("Records = %+v, want the appended record", snap.Records)
	}
}

func TestExamplesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var payload struct {
		Examples []string `json:"examples"`
	}
	getJSON(t, srv.URL+"/v1/examples", &payload)

	if len(payload.Examples) == 0 {
		t.Fatal("examples list empty")
	}
	if payload.Examples[0] != "ขายน้ำ 20 บาท" {
		t.Errorf("first example = %q", payload.Examples[0])
	}
}

func TestEditFlowOverHTTP(t *testing.T) {
	srv, res := newTestServer(t)
	conf := 0.9
	rec := res.Append(models.Hypothesis{Text: "ขายน้ำ 20 บาท", Confidence: &conf})

	post := func(action, text string) *http.Response {
		body, _ := json.Marshal(editCommand{Action: action, Text: text})
		resp, err := http.Post(srv.URL+"/v1/records/"+rec.ID+"/edit", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("POST edit %s: %v", action, err)
		}
		resp.Body.Close()
		return resp
	}

	post("begin", "")
	post("draft", "ขายน้ำ 25 บาท")
	post("commit", "")

	got, err := res.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Text != "ขายน้ำ 25 บาท" {
		t.Errorf("Text = %q, want the committed draft", got.Text)
	}
}

func TestUnknownEditActionRejected(t *testing.T) {
	srv, res := newTestServer(t)
	conf := 0.9
	rec := res.Append(models.Hypothesis{Text: "ทดสอบ", Confidence: &conf})

	body, _ := json.Marshal(editCommand{Action: "frobnicate"})
	resp, err := http.Post(srv.URL+"/v1/records/"+rec.ID+"/edit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST edit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestClearAllEndpoint(t *testing.T) {
	srv, res := newTestServer(t)
	conf := 0.9
	res.Append(models.Hypothesis{Text: "หนึ่ง", Confidence: &conf})
	res.Append(models.Hypothesis{Text: "สอง", Confidence: &conf})

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/records", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /v1/records: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if res.Len() != 0 {
		t.Errorf("Len() = %d, want 0", res.Len())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status = %d", path, resp.StatusCode)
		}
	}
}
