package api

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/james-see/zplanebank/pkg/bank"
	"github.com/james-see/zplanebank/pkg/config"
	"github.com/james-see/zplanebank/pkg/ingest"
	"github.com/james-see/zplanebank/pkg/sysex"
	"github.com/james-see/zplanebank/pkg/zplane"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(config.Default(), logger).Router()
}

func upload(t *testing.T, router *gin.Engine, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := testRouter()
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "healthy") {
			t.Errorf("GET %s body = %s", path, w.Body.String())
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/bank/encode", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestInfo(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/info = %d", w.Code)
	}

	var got struct {
		Magic   string   `json:"magic"`
		Presets int      `json:"presets"`
		Sources []string `json:"sources"`
		Modes   []string `json:"modes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Magic != "SVZa" || got.Presets != 32 || len(got.Sources) != 11 || len(got.Modes) != 3 {
		t.Errorf("info = %+v", got)
	}
}

func TestEncodeDecode(t *testing.T) {
	router := testRouter()

	w := post(router, "/api/v1/bank/encode?name=Web", `[{"name":"Bright Pad","filter":{"cutoff":0.8}}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("encode = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "Web.svz") {
		t.Errorf("Content-Disposition = %q", got)
	}
	container := w.Body.Bytes()
	if !bank.HasMagic(container) {
		t.Fatalf("encode returned % X...", container[:min(8, len(container))])
	}

	w = upload(t, router, "/api/v1/bank/decode", "Web.svz", container)
	if w.Code != http.StatusOK {
		t.Fatalf("decode = %d: %s", w.Code, w.Body.String())
	}
	var artifacts bank.Artifacts
	if err := json.Unmarshal(w.Body.Bytes(), &artifacts); err != nil {
		t.Fatal(err)
	}
	if len(artifacts.Presets) != bank.BankSize || artifacts.Presets[0].Name != "Bright Pad" {
		t.Errorf("decoded presets = %d, first %+v", len(artifacts.Presets), artifacts.Presets)
	}
	if artifacts.MarkerOffset != bank.MarkerOffset {
		t.Errorf("MarkerOffset = %d, want %d", artifacts.MarkerOffset, bank.MarkerOffset)
	}
}

func TestEncodeWarnings(t *testing.T) {
	presets := make([]ingest.Preset, bank.BankSize+3)
	for i := range presets {
		presets[i].Name = "p"
	}
	body, err := ingest.MarshalPresets("Full", presets)
	if err != nil {
		t.Fatal(err)
	}

	w := post(testRouter(), "/api/v1/bank/encode", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("encode = %d", w.Code)
	}
	if w.Header().Get("X-Bank-Warnings") == "" {
		t.Error("expected truncation warning header")
	}
}

func TestEncodeErrors(t *testing.T) {
	if w := post(testRouter(), "/api/v1/bank/encode", "{broken"); w.Code != http.StatusBadRequest {
		t.Errorf("encode broken json = %d, want 400", w.Code)
	}
}

func TestDecodeErrors(t *testing.T) {
	router := testRouter()

	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"not a container", []byte("hello world, this is not a bank"), http.StatusBadRequest},
		{"corrupt stream", append([]byte("SVZa\x01\x00RC001"), 0x78, 0x9C, 0xFF, 0xFF, 0xFF), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := upload(t, router, "/api/v1/bank/decode", "x.svz", tt.data); w.Code != tt.want {
				t.Errorf("decode = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bank/decode", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("decode without file = %d, want 400", w.Code)
	}
}

func TestConvert(t *testing.T) {
	router := testRouter()
	body := `{"sampleRateRef":48000,"shapes":[{"name":"vowel","poles":[{"r":0.95,"theta":0.3}]}]}`

	w := post(router, "/api/v1/shapes/convert?rate=44100", body)
	if w.Code != http.StatusOK {
		t.Fatalf("convert = %d: %s", w.Code, w.Body.String())
	}
	var got convertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Shapes.SampleRateRef != 44100 || got.Report == nil || got.Report.DestRate != 44100 {
		t.Errorf("convert response = %+v", got)
	}
	want := zplane.ConvertPole(zplane.Pole{R: 0.95, Theta: 0.3}, 44100.0/48000.0)
	if p := got.Shapes.Shapes[0].Poles[0]; p != want {
		t.Errorf("pole = %+v, want %+v", p, want)
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad rate", "/api/v1/shapes/convert?rate=fast", body, http.StatusBadRequest},
		{"zero rate", "/api/v1/shapes/convert?rate=0", body, http.StatusBadRequest},
		{"bad json", "/api/v1/shapes/convert", "[", http.StatusBadRequest},
		{"unstable pole", "/api/v1/shapes/convert", `{"sampleRateRef":48000,"shapes":[{"name":"x","poles":[{"r":1.2,"theta":0}]}]}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := post(router, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("convert = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestIngest(t *testing.T) {
	body := make([]byte, 100)
	body[35] = 127
	msg := sysex.Build(sysex.Dump{Family: sysex.FamilyAudity, Command: 0x10, Body: body})

	w := upload(t, testRouter(), "/api/v1/sysex/ingest", "00_0036_REZANATOR.syx", msg.Bytes())
	if w.Code != http.StatusOK {
		t.Fatalf("ingest = %d: %s", w.Code, w.Body.String())
	}
	var presets []ingest.Preset
	if err := json.Unmarshal(w.Body.Bytes(), &presets); err != nil {
		t.Fatal(err)
	}
	if len(presets) != 1 || presets[0].Name != "REZANATOR" {
		t.Errorf("ingest = %+v", presets)
	}

	if w := upload(t, testRouter(), "/api/v1/sysex/ingest", "x.syx", []byte{0x01, 0x02}); w.Code != http.StatusBadRequest {
		t.Errorf("ingest garbage = %d, want 400", w.Code)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My Bank", "My_Bank.svz"},
		{"", "bank.svz"},
		{"../etc/passwd", ".._etc_passwd.svz"},
	}
	for _, tt := range tests {
		if got := outputName(tt.in, ".svz"); got != tt.want {
			t.Errorf("outputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
