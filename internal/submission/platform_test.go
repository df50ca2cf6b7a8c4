package submission

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/your-org/checker/internal/fingerprint"
	"github.com/your-org/checker/pkg/storage/objectstore"
)

const (
	authURL      = "https://auth.test/auth"
	analyticsURL = "https://analytics.test/report"
	testMAC      = "aa:bb:cc:dd:ee:ff"

	hostAuth      = "auth.test"
	hostStore     = "b.oss.test"
	hostRunner    = "run"
	hostAnalytics = "analytics.test"

	bundleJSON = `{"SubmissionId":"S1","Bucket":"b","Dir":"u/S1","OSSAccessKeyId":"k","Policy":"p","Signature":"s","RunnerLocation":"https://run/x","TestEntry":"main","TestEnv":[]}`
)

var testStore = objectstore.Config{Endpoint: "oss.test", UseSSL: true}

type storedUpload struct {
	Fields   map[string]string
	FileName string
	Data     []byte
}

// fakePlatform is an http.RoundTripper standing in for every remote service
// of a run. It routes on the request host and counts calls per host.
type fakePlatform struct {
	t *testing.T

	mu    sync.Mutex
	hosts map[string]http.Handler
	calls map[string]int
	total int

	AuthQuery    url.Values
	AuthRawQuery string
	AuthBody     string
	AuthStatus   int

	Uploads      []storedUpload
	FailUploadAt int
	UploadStatus int

	RunRaw       []byte
	RunRequest   RunRequest
	RunnerText   string
	RunnerStatus int

	Reports      []Record
	ReportStatus int
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{
		t:            t,
		calls:        map[string]int{},
		AuthBody:     bundleJSON,
		AuthStatus:   http.StatusOK,
		UploadStatus: http.StatusForbidden,
		RunnerText:   "PASS",
		RunnerStatus: http.StatusOK,
		ReportStatus: http.StatusOK,
	}

	auth := chi.NewRouter()
	auth.Get("/auth", f.handleAuth)

	store := chi.NewRouter()
	store.Post("/", f.handleUpload)

	runner := chi.NewRouter()
	runner.Post("/x", f.handleRun)

	analytics := chi.NewRouter()
	analytics.Post("/report", f.handleReport)

	f.hosts = map[string]http.Handler{
		hostAuth:      auth,
		hostStore:     store,
		hostRunner:    runner,
		hostAnalytics: analytics,
	}
	return f
}

func (f *fakePlatform) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.total++
	f.calls[req.URL.Host]++

	h, ok := f.hosts[req.URL.Host]
	if !ok {
		return nil, fmt.Errorf("dial tcp: lookup %s: no such host", req.URL.Host)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (f *fakePlatform) Client() *http.Client {
	return &http.Client{Transport: f}
}

func (f *fakePlatform) Calls(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[host]
}

func (f *fakePlatform) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *fakePlatform) handleAuth(w http.ResponseWriter, r *http.Request) {
	f.AuthQuery = r.URL.Query()
	f.AuthRawQuery = r.URL.RawQuery
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.AuthStatus)
	_, _ = io.WriteString(w, f.AuthBody)
}

func (f *fakePlatform) handleUpload(w http.ResponseWriter, r *http.Request) {
	if f.FailUploadAt > 0 && f.calls[hostStore] >= f.FailUploadAt {
		w.WriteHeader(f.UploadStatus)
		return
	}
	require.NoError(f.t, r.ParseMultipartForm(2<<20))

	up := storedUpload{Fields: map[string]string{}}
	for k, v := range r.MultipartForm.Value {
		up.Fields[k] = v[0]
	}
	file, header, err := r.FormFile("file")
	require.NoError(f.t, err)
	defer file.Close()
	up.FileName = header.Filename
	up.Data, err = io.ReadAll(file)
	require.NoError(f.t, err)

	f.Uploads = append(f.Uploads, up)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakePlatform) handleRun(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)
	f.RunRaw = raw
	require.NoError(f.t, json.Unmarshal(raw, &f.RunRequest))
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(f.RunnerStatus)
	_, _ = io.WriteString(w, f.RunnerText)
}

func (f *fakePlatform) handleReport(w http.ResponseWriter, r *http.Request) {
	var rec Record
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&rec))
	f.Reports = append(f.Reports, rec)
	w.WriteHeader(f.ReportStatus)
}

func newTestService(t *testing.T, f *fakePlatform, mutate ...func(*Params)) *Service {
	t.Helper()
	client := f.Client()
	store, err := objectstore.New(objectstore.Config{Provider: "oss", HTTPClient: client})
	require.NoError(t, err)

	p := Params{
		HTTPClient:  client,
		Store:       store,
		Reporter:    NewHTTPReporter(client, analyticsURL),
		Fingerprint: fingerprint.Static(testMAC),
		AuthURL:     authURL,
		Destination: func(bucket string) string { return objectstore.Destination(testStore, bucket) },
	}
	for _, m := range mutate {
		m(&p)
	}
	return NewService(p)
}

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o600))
	return path
}

func testBundle() *CredentialBundle {
	return &CredentialBundle{
		SubmissionID:   "S1",
		Bucket:         "b",
		Dir:            "u/S1",
		AccessKeyID:    "k",
		Policy:         "p",
		Signature:      "s",
		RunnerLocation: "https://run/x",
		TestEntry:      "main",
		TestEnv:        []objectstore.Object{},
	}
}

type recordingEmitter struct {
	stages   []Stage
	failures map[Stage]error
}

func (r *recordingEmitter) OnStage(s Stage) { r.stages = append(r.stages, s) }

func (r *recordingEmitter) OnFailure(s Stage, err error) {
	if r.failures == nil {
		r.failures = map[Stage]error{}
	}
	r.failures[s] = err
}
