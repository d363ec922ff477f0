package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/access-logger/internal/access"
	"github.com/sweeney/access-logger/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, logPath string) (*httptest.Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		SampleMs:    1000,
		DebounceMs:  50,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":8080",
		LogPath:     logPath,
		LogFormat:   "compact",
		Sensor:      "simulated",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, logPath)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return resp
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, "")
	m := access.NewMachine()
	m.Start(start)
	for i := 0; i < 5; i++ {
		m.Tick(access.Reading{Temperature: 20, Humidity: 50}, start.Add(time.Duration(i)*time.Second))
	}
	tr.Update(m, 6)
	tr.SetMQTTConnected(true)

	var sj status.StatusJSON
	resp := getJSON(t, ts.URL+"/index.json", &sj)

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if !sj.Status.Active {
		t.Error("expected Active=true")
	}
	if sj.Status.ElapsedSeconds != 5 {
		t.Errorf("ElapsedSeconds: got %d, want 5", sj.Status.ElapsedSeconds)
	}
	if sj.Status.Tier != "GREEN" {
		t.Errorf("Tier: got %q, want GREEN", sj.Status.Tier)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Readings != 5 {
		t.Errorf("Counts.Readings: got %d, want 5", sj.Status.Counts.Readings)
	}
	if sj.Status.Log.Lines != 6 {
		t.Errorf("Log.Lines: got %d, want 6", sj.Status.Log.Lines)
	}
	if sj.Status.Config.SampleMs != 1000 {
		t.Errorf("Config.SampleMs: got %d, want 1000", sj.Status.Config.SampleMs)
	}
}

func TestJSONIdleBeforeFirstAccess(t *testing.T) {
	ts, _ := newTestServer(t, "")

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.Active {
		t.Error("expected Active=false")
	}
	if sj.Status.Tier != "NONE" {
		t.Errorf("Tier: got %q, want NONE", sj.Status.Tier)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t, "")
	m := access.NewMachine()
	m.Start(start)
	tr.Update(m, 1)
	tr.SetReading(access.Reading{Temperature: 18.5, Humidity: 41.25}, start)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"ACTIVE", "GREEN", "rgb(0,250,0)", "18.50", "41.25"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "IDLE") {
		t.Error("idle page should say IDLE")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, "")

	for _, path := range []string{"/nonexistent", "/periods.json"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != 404 {
			t.Errorf("%s status: got %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestPeriodsEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_data.csv")
	log := "ACCESS-STARTED\n" +
		"2019-3-5|10:0:0,21.00,45.50\n" +
		"2019-3-5|10:0:1,22.00,46.50\n" +
		"ACCESS-STOPPED,2\n" +
		"ACCESS-STARTED\n"
	if err := os.WriteFile(path, []byte(log), 0o644); err != nil {
		t.Fatal(err)
	}
	ts, _ := newTestServer(t, path)

	var pj PeriodsJSON
	resp := getJSON(t, ts.URL+"/periods.json", &pj)

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if len(pj.Periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(pj.Periods))
	}
	p := pj.Periods[0]
	if p.Start != "2019-03-05T10:00:00" || p.End != "2019-03-05T10:00:02" {
		t.Errorf("times: got %s .. %s", p.Start, p.End)
	}
	if p.Seconds != 2 || p.StoredSeconds != 2 || p.Readings != 2 {
		t.Errorf("unexpected period: %+v", p)
	}
	if p.MaxTemperature == nil || *p.MaxTemperature != 22 {
		t.Errorf("MaxTemperature: got %v", p.MaxTemperature)
	}
	if p.AverageHumidity == nil || *p.AverageHumidity != 46 {
		t.Errorf("AverageHumidity: got %v", p.AverageHumidity)
	}
	if len(pj.Anomalies) != 1 || !strings.Contains(pj.Anomalies[0], "UNTERMINATED") {
		t.Errorf("expected the open access as UNTERMINATED, got %v", pj.Anomalies)
	}
}

func TestPeriodsEndpointMissingLog(t *testing.T) {
	ts, _ := newTestServer(t, filepath.Join(t.TempDir(), "missing.csv"))

	resp, err := http.Get(ts.URL + "/periods.json")
	if err != nil {
		t.Fatalf("GET /periods.json: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, "")

	var sj1 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj1)
	if sj1.Status.Active {
		t.Error("expected Active=false initially")
	}

	m := access.NewMachine()
	m.Start(start)
	tr.Update(m, 1)
	tr.SetMQTTConnected(true)

	var sj2 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj2)
	if !sj2.Status.Active {
		t.Error("expected Active=true after update")
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}

	m.Stop(start.Add(time.Second))
	tr.Update(m, 2)

	var sj3 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj3)
	if sj3.Status.Active || sj3.Status.Tier != "NONE" {
		t.Errorf("expected idle NONE after stop, got active=%v tier=%s", sj3.Status.Active, sj3.Status.Tier)
	}
	if sj3.Status.Counts.Stopped != 1 {
		t.Errorf("Counts.Stopped: got %d, want 1", sj3.Status.Counts.Stopped)
	}
}
