package restapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type fakeTracker struct {
	accounts  []string
	hideDust  bool
	reloadErr error
	snapshots []entity.Snapshot
}

func (f *fakeTracker) AddAccount(_ context.Context, address string) error {
	if !strings.HasPrefix(address, "0x") {
		return fmt.Errorf("%w: %s", entity.ErrInvalidAddress, address)
	}
	for _, a := range f.accounts {
		if a == address {
			return entity.ErrDuplicateAccount
		}
	}
	f.accounts = append(f.accounts, address)
	return nil
}

func (f *fakeTracker) RemoveAccount(_ context.Context, address string) error {
	for i, a := range f.accounts {
		if a == address {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			return nil
		}
	}
	return entity.ErrAccountNotFound
}

func (f *fakeTracker) Accounts() []string { return f.accounts }

func (f *fakeTracker) ToggleNetwork(_ context.Context, chainID string) (bool, error) {
	if chainID != "0x89" {
		return false, entity.ErrUnsupportedChain
	}
	return true, nil
}

func (f *fakeTracker) Networks() []entity.NetworkDefinition {
	return []entity.NetworkDefinition{{ChainID: "0x1", Name: "Ethereum"}}
}

func (f *fakeTracker) Catalog() []entity.NetworkDefinition {
	return []entity.NetworkDefinition{{ChainID: "0x1"}, {ChainID: "0x89"}}
}

func (f *fakeTracker) SetHideDust(hide bool) { f.hideDust = hide }

func (f *fakeTracker) Reload(context.Context) (*port.ReloadReport, error) {
	if f.reloadErr != nil {
		return nil, f.reloadErr
	}
	return &port.ReloadReport{
		Generation: 3,
		Wallets:    1,
		Errors:     []entity.PortfolioError{{ChainID: "0xa", Kind: entity.FailurePrice, Message: "no price"}},
	}, nil
}

func (f *fakeTracker) Portfolio(_ context.Context, index int) (*entity.PortfolioView, error) {
	if index == entity.LiveSnapshotIndex {
		return &entity.PortfolioView{Source: entity.ViewSourceLive, SnapshotIndex: index, TotalValueUSD: 3650}, nil
	}
	if index < 0 || index >= len(f.snapshots) {
		return nil, entity.ErrIndexOutOfRange
	}
	return &entity.PortfolioView{Source: entity.ViewSourceSnapshot, SnapshotIndex: index, Timestamp: f.snapshots[index].Timestamp}, nil
}

func (f *fakeTracker) SaveSnapshot(context.Context) (entity.Snapshot, error) {
	s := entity.Snapshot{Timestamp: 1700000000000, PortfolioValue: 3650}
	f.snapshots = append(f.snapshots, s)
	return s, nil
}

func (f *fakeTracker) Snapshots(context.Context) ([]entity.Snapshot, error) { return f.snapshots, nil }

func newTestRouter(tracker *fakeTracker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPortfolioHandler(tracker, 0, logger.NewSlogAdapter())
	return SetupRouter(h, RouterOptions{}, zap.NewNop())
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, out
}

func TestRouter_StatusCodes(t *testing.T) {
	const addr = "0x1111111111111111111111111111111111111111"
	tracker := &fakeTracker{}
	r := newTestRouter(tracker)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"live portfolio", http.MethodGet, "/api/v1/portfolio", "", http.StatusOK},
		{"bad snapshot query", http.MethodGet, "/api/v1/portfolio?snapshot=abc", "", http.StatusBadRequest},
		{"missing snapshot", http.MethodGet, "/api/v1/snapshots/0", "", http.StatusNotFound},
		{"add account", http.MethodPost, "/api/v1/accounts", `{"address":"` + addr + `"}`, http.StatusCreated},
		{"duplicate account", http.MethodPost, "/api/v1/accounts", `{"address":"` + addr + `"}`, http.StatusConflict},
		{"invalid account", http.MethodPost, "/api/v1/accounts", `{"address":"nope"}`, http.StatusBadRequest},
		{"missing body field", http.MethodPost, "/api/v1/accounts", `{}`, http.StatusBadRequest},
		{"list accounts", http.MethodGet, "/api/v1/accounts", "", http.StatusOK},
		{"remove account", http.MethodDelete, "/api/v1/accounts/" + addr, "", http.StatusOK},
		{"remove unknown account", http.MethodDelete, "/api/v1/accounts/" + addr, "", http.StatusNotFound},
		{"toggle network", http.MethodPost, "/api/v1/networks/0x89/toggle", "", http.StatusOK},
		{"toggle unknown network", http.MethodPost, "/api/v1/networks/0x999/toggle", "", http.StatusNotFound},
		{"hide dust", http.MethodPut, "/api/v1/settings/hide-dust", `{"hideDust":false}`, http.StatusOK},
		{"hide dust without value", http.MethodPut, "/api/v1/settings/hide-dust", `{}`, http.StatusBadRequest},
		{"save snapshot", http.MethodPost, "/api/v1/snapshots", "", http.StatusCreated},
		{"stored snapshot", http.MethodGet, "/api/v1/snapshots/0", "", http.StatusOK},
		{"snapshot via query", http.MethodGet, "/api/v1/portfolio?snapshot=0", "", http.StatusOK},
		{"reload", http.MethodPost, "/api/v1/reload", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (body %s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}

	if tracker.hideDust {
		t.Error("hide-dust setting not forwarded")
	}
}

func TestRouter_ReloadResponse(t *testing.T) {
	tracker := &fakeTracker{}
	r := newTestRouter(tracker)

	w, body := do(t, r, http.MethodPost, "/api/v1/reload", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d", w.Code)
	}
	errs, ok := body["service_errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Errorf("service_errors = %v", body["service_errors"])
	}

	tracker.reloadErr = fmt.Errorf("reload: %w", entity.ErrStaleGeneration)
	w, _ = do(t, r, http.MethodPost, "/api/v1/reload", "")
	if w.Code != http.StatusConflict {
		t.Errorf("stale reload status = %d, want 409", w.Code)
	}

	tracker.reloadErr = context.DeadlineExceeded
	w, _ = do(t, r, http.MethodPost, "/api/v1/reload", "")
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("timed out reload status = %d, want 504", w.Code)
	}
}

func TestRouter_SnapshotList(t *testing.T) {
	tracker := &fakeTracker{snapshots: []entity.Snapshot{{Timestamp: 0, PortfolioValue: 1234.5}}}
	r := newTestRouter(tracker)

	w, body := do(t, r, http.MethodGet, "/api/v1/snapshots", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := body["data"].([]any)
	first := list[0].(map[string]any)
	if first["label"] != "1970-01-01T00:00:00Z" || first["valueDisplay"] != "$1,234.50" {
		t.Errorf("summary = %v", first)
	}
}
