package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	. "github.com/BelowZeroPortfolio/school-scan-sub002/apps/api/echo"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/services/metrics"
	"github.com/BelowZeroPortfolio/school-scan-sub002/services/notify"
	"github.com/BelowZeroPortfolio/school-scan-sub002/tests"
)

var (
	admin    = core.Operator{ID: 1, Username: "admin", IsAdmin: true}
	operator = core.Operator{ID: 2, Username: "registrar"}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type fixture struct {
	app    Server
	conf   *core.Config
	store  *testutil.Store
	logger *testutil.Logger
}

func setup(t *testing.T) *fixture {
	conf := *core.Conf
	conf.Debug = false
	conf.TestMode = true

	store := testutil.NewStore()
	logger := &testutil.Logger{}
	reg := prometheus.NewRegistry()

	years := schoolyear.NewService(store.DB, store.Years)
	app := NewServer(ServerDeps{
		Conf:           &conf,
		Logger:         logger,
		YearSvc:        years,
		ClassSvc:       class.NewService(store.Classes, store.Years),
		EnrollmentSvc:  enrollment.NewService(store.DB, store.Enrollments, store.Classes, store.Years, store.Students),
		PlacementSvc:   placement.NewService(store.DB, store.Repositories(), logger, notifysvc.NewConsoleNotifierMock(), metricsvc.NewPlacementRecorder(reg)),
		Sessions:       placement.NewMemoryStore(0),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DisableReqLogs: true,
	})
	return &fixture{app: app, conf: &conf, store: store, logger: logger}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (f *fixture) getToken(t *testing.T, op core.Operator) string {
	token, err := GenerateToken(GetOperatorClaims(op, f.conf), f.conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// do serves one request and fails the test when the status code is not wantCode.
func (f *fixture) do(t *testing.T, method, path, token string, body interface{}, wantCode int) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		data = marshalObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	f.app.ServeHTTP(rec, req)
	if rec.Code != wantCode {
		t.Fatalf("%s %s: code = %v; wantCode %v; body %s", method, path, rec.Code, wantCode, rec.Body.String())
	}
	return rec
}

func (f *fixture) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData compares the body only when the test expects data.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
