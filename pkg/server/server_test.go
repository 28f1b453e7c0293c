package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"serverlist/pkg/address"
	"serverlist/pkg/coordinator"
	"serverlist/pkg/history"
	"serverlist/pkg/models"
	"serverlist/pkg/probe"
	"serverlist/pkg/store"
)

// MockList is a mock implementation of ServerList
type MockList struct {
	mock.Mock
}

func (m *MockList) Snapshot() coordinator.View {
	return m.Called().Get(0).(coordinator.View)
}

func (m *MockList) LoadAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockList) Add(ctx context.Context, name, addr string) (models.ServerEntry, error) {
	args := m.Called(ctx, name, addr)
	return args.Get(0).(models.ServerEntry), args.Error(1)
}

func (m *MockList) Edit(ctx context.Context, id, name, addr string) (models.ServerEntry, error) {
	args := m.Called(ctx, id, name, addr)
	return args.Get(0).(models.ServerEntry), args.Error(1)
}

func (m *MockList) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockList) Refresh(id string, force bool) error {
	return m.Called(id, force).Error(0)
}

func (m *MockList) SetFilter(substring string) coordinator.View {
	return m.Called(substring).Get(0).(coordinator.View)
}

func (m *MockList) Entry(id string) (models.ServerEntry, error) {
	args := m.Called(id)
	return args.Get(0).(models.ServerEntry), args.Error(1)
}

// MockProber is a mock implementation of coordinator.Prober
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, addr string, timeout time.Duration) (*probe.Result, error) {
	args := m.Called(ctx, addr, timeout)
	var result *probe.Result
	if v := args.Get(0); v != nil {
		result = v.(*probe.Result)
	}
	return result, args.Error(1)
}

// MockHistory is a mock implementation of HistoryReader
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Recent(ctx context.Context, addr string, limit int) ([]history.Record, error) {
	args := m.Called(ctx, addr, limit)
	var records []history.Record
	if v := args.Get(0); v != nil {
		records = v.([]history.Record)
	}
	return records, args.Error(1)
}

// ServerTestSuite tests the HTTP API handlers
type ServerTestSuite struct {
	suite.Suite
	list    *MockList
	prober  *MockProber
	history *MockHistory
	api     *APIServer
}

// SetupTest runs before each test
func (s *ServerTestSuite) SetupTest() {
	s.list = new(MockList)
	s.prober = new(MockProber)
	s.history = new(MockHistory)
	s.api = NewAPIServer(s.list, s.prober, s.history, 3*time.Second, "test-v1.0.0")
}

func (s *ServerTestSuite) newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return s.api.echo.NewContext(req, rec), rec
}

func (s *ServerTestSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var response map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}

func sampleEntry() models.ServerEntry {
	entry := models.NewServerEntry("Lobby", "lobby.example")
	entry.Status = models.Status{Kind: models.StatusLoaded, Online: 2, Max: 10}
	return entry
}

// TestListServers tests GET /servers
func (s *ServerTestSuite) TestListServers() {
	view := coordinator.View{State: coordinator.StateLoadedData, Total: 1, Entries: []models.ServerEntry{sampleEntry()}}
	s.list.On("Snapshot").Return(view)

	c, rec := s.newContext(http.MethodGet, "/servers", "")
	s.NoError(s.api.listServers(c))
	s.Equal(http.StatusOK, rec.Code)

	var got coordinator.View
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal(coordinator.StateLoadedData, got.State)
	s.Equal(1, got.Total)
	s.Equal("Lobby", got.Entries[0].Name)
}

// TestAddServer tests POST /servers
func (s *ServerTestSuite) TestAddServer() {
	entry := sampleEntry()
	s.list.On("Add", mock.Anything, "Lobby", "lobby.example").Return(entry, nil)

	c, rec := s.newContext(http.MethodPost, "/servers", `{"name":"Lobby","address":"lobby.example"}`)
	s.NoError(s.api.addServer(c))
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal(entry.ID, s.decode(rec)["id"])
}

// TestAddServerInvalidAddress tests the 400 mapping
func (s *ServerTestSuite) TestAddServerInvalidAddress() {
	s.list.On("Add", mock.Anything, "Bad", "host:x").
		Return(models.ServerEntry{}, errors.Join(address.ErrInvalidAddress, errors.New("bad port")))

	c, rec := s.newContext(http.MethodPost, "/servers", `{"name":"Bad","address":"host:x"}`)
	s.NoError(s.api.addServer(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid server address", s.decode(rec)["error"])
}

// TestAddServerSaveFailure tests that a failed save still returns the entry
func (s *ServerTestSuite) TestAddServerSaveFailure() {
	entry := sampleEntry()
	s.list.On("Add", mock.Anything, "Lobby", "lobby.example").
		Return(entry, &store.IOError{Path: "servers.dat", Op: "write", Err: errors.New("disk full")})

	c, rec := s.newContext(http.MethodPost, "/servers", `{"name":"Lobby","address":"lobby.example"}`)
	s.NoError(s.api.addServer(c))
	s.Equal(http.StatusInternalServerError, rec.Code)

	response := s.decode(rec)
	s.Equal("Failed to save server list", response["error"])
	server, ok := response["server"].(map[string]any)
	s.Require().True(ok)
	s.Equal(entry.ID, server["id"])
}

// TestAddServerBadBody tests malformed JSON
func (s *ServerTestSuite) TestAddServerBadBody() {
	c, rec := s.newContext(http.MethodPost, "/servers", `{"name":`)
	s.NoError(s.api.addServer(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.list.AssertNotCalled(s.T(), "Add", mock.Anything, mock.Anything, mock.Anything)
}

// TestEditServer tests PUT /servers/{id}
func (s *ServerTestSuite) TestEditServer() {
	entry := sampleEntry()
	entry.Name = "Renamed"
	s.list.On("Edit", mock.Anything, entry.ID, "Renamed", "new.example").Return(entry, nil)

	c, rec := s.newContext(http.MethodPut, "/servers/"+entry.ID, `{"name":"Renamed","address":"new.example"}`)
	c.SetParamNames("id")
	c.SetParamValues(entry.ID)

	s.NoError(s.api.editServer(c))
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Renamed", s.decode(rec)["name"])
}

// TestEditServerNotFound tests the 404 mapping
func (s *ServerTestSuite) TestEditServerNotFound() {
	s.list.On("Edit", mock.Anything, "missing", "X", "x.example").Return(models.ServerEntry{}, coordinator.ErrNotFound)

	c, rec := s.newContext(http.MethodPut, "/servers/missing", `{"name":"X","address":"x.example"}`)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	s.NoError(s.api.editServer(c))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Server not found", s.decode(rec)["error"])
}

// TestDeleteServer tests DELETE /servers/{id}
func (s *ServerTestSuite) TestDeleteServer() {
	s.list.On("Delete", mock.Anything, "abc").Return(nil)

	c, rec := s.newContext(http.MethodDelete, "/servers/abc", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	s.NoError(s.api.deleteServer(c))
	s.Equal(http.StatusOK, rec.Code)

	response := s.decode(rec)
	s.Equal("Server deleted successfully", response["message"])
	s.Equal("abc", response["id"])
}

// TestDeleteServerClosed tests the 503 mapping
func (s *ServerTestSuite) TestDeleteServerClosed() {
	s.list.On("Delete", mock.Anything, "abc").Return(coordinator.ErrClosed)

	c, rec := s.newContext(http.MethodDelete, "/servers/abc", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	s.NoError(s.api.deleteServer(c))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

// TestReloadServers tests POST /servers/reload
func (s *ServerTestSuite) TestReloadServers() {
	s.list.On("LoadAll", mock.Anything).Return(nil)
	s.list.On("Snapshot").Return(coordinator.View{State: coordinator.StateLoadedData})

	c, rec := s.newContext(http.MethodPost, "/servers/reload", "")
	s.NoError(s.api.reloadServers(c))
	s.Equal(http.StatusOK, rec.Code)
	s.list.AssertCalled(s.T(), "LoadAll", mock.Anything)
}

// TestRefreshServer tests POST /servers/{id}/refresh with force
func (s *ServerTestSuite) TestRefreshServer() {
	s.list.On("Refresh", "abc", true).Return(nil)

	c, rec := s.newContext(http.MethodPost, "/servers/abc/refresh?force=true", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	s.NoError(s.api.refreshServer(c))
	s.Equal(http.StatusAccepted, rec.Code)
	s.Equal(true, s.decode(rec)["force"])
}

// TestRefreshServerBadForce tests an unparsable force flag
func (s *ServerTestSuite) TestRefreshServerBadForce() {
	c, rec := s.newContext(http.MethodPost, "/servers/abc/refresh?force=maybe", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	s.NoError(s.api.refreshServer(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.list.AssertNotCalled(s.T(), "Refresh", mock.Anything, mock.Anything)
}

// TestSetFilter tests PUT /filter
func (s *ServerTestSuite) TestSetFilter() {
	s.list.On("SetFilter", "abc").Return(coordinator.View{State: coordinator.StateLoadedData, Filter: "abc", Total: 3})

	c, rec := s.newContext(http.MethodPut, "/filter", `{"filter":"abc"}`)
	s.NoError(s.api.setFilter(c))
	s.Equal(http.StatusOK, rec.Code)

	response := s.decode(rec)
	s.Equal("abc", response["filter"])
	s.Equal(float64(3), response["total"])
}

// TestServerIcon tests GET /servers/{id}/icon
func (s *ServerTestSuite) TestServerIcon() {
	entry := sampleEntry()
	entry.Icon = []byte{0x89, 'P', 'N', 'G'}
	s.list.On("Entry", entry.ID).Return(entry, nil)

	c, rec := s.newContext(http.MethodGet, "/servers/"+entry.ID+"/icon", "")
	c.SetParamNames("id")
	c.SetParamValues(entry.ID)

	s.NoError(s.api.serverIcon(c))
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(iconContentType, rec.Header().Get(echo.HeaderContentType))
	s.Equal(entry.Icon, rec.Body.Bytes())
}

// TestServerIconMissing tests an entry without an icon
func (s *ServerTestSuite) TestServerIconMissing() {
	entry := sampleEntry()
	s.list.On("Entry", entry.ID).Return(entry, nil)

	c, rec := s.newContext(http.MethodGet, "/servers/"+entry.ID+"/icon", "")
	c.SetParamNames("id")
	c.SetParamValues(entry.ID)

	s.NoError(s.api.serverIcon(c))
	s.Equal(http.StatusNotFound, rec.Code)
}

// TestServerHistory tests GET /servers/{id}/history
func (s *ServerTestSuite) TestServerHistory() {
	entry := sampleEntry()
	s.list.On("Entry", entry.ID).Return(entry, nil)
	s.history.On("Recent", mock.Anything, "lobby.example", 5).Return([]history.Record{
		{ID: 2, Address: "lobby.example", Kind: models.StatusFailed, Reason: "timed out"},
		{ID: 1, Address: "lobby.example", Kind: models.StatusLoaded, PingMs: 30},
	}, nil)

	c, rec := s.newContext(http.MethodGet, "/servers/"+entry.ID+"/history?limit=5", "")
	c.SetParamNames("id")
	c.SetParamValues(entry.ID)

	s.NoError(s.api.serverHistory(c))
	s.Equal(http.StatusOK, rec.Code)

	records, ok := s.decode(rec)["records"].([]any)
	s.Require().True(ok)
	s.Len(records, 2)
}

// TestServerHistoryDisabled tests the API without a history store
func (s *ServerTestSuite) TestServerHistoryDisabled() {
	api := NewAPIServer(s.list, s.prober, nil, time.Second, "test")

	req := httptest.NewRequest(http.MethodGet, "/servers/abc/history", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	s.NoError(api.serverHistory(c))
	s.Equal(http.StatusNotFound, rec.Code)
	s.list.AssertNotCalled(s.T(), "Entry", mock.Anything)
}

// TestPing tests GET /ping
func (s *ServerTestSuite) TestPing() {
	s.prober.On("Probe", mock.Anything, "mc.example:25570", 3*time.Second).
		Return(&probe.Result{PingMs: 20, Online: 1, Max: 5, MOTD: "hi"}, nil)

	c, rec := s.newContext(http.MethodGet, "/ping?address=mc.example:25570", "")
	s.NoError(s.api.ping(c))
	s.Equal(http.StatusOK, rec.Code)

	response := s.decode(rec)
	s.Equal("hi", response["motd"])
	s.Equal(float64(20), response["ping_ms"])
}

// TestPingFailure tests the 502 mapping
func (s *ServerTestSuite) TestPingFailure() {
	s.prober.On("Probe", mock.Anything, "down.example", 3*time.Second).
		Return(nil, &probe.TimeoutError{Address: "down.example", Err: context.DeadlineExceeded})

	c, rec := s.newContext(http.MethodGet, "/ping?address=down.example", "")
	s.NoError(s.api.ping(c))
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Equal("timed out", s.decode(rec)["reason"])
}

// TestPingInvalidAddress tests that a bad address is not probed
func (s *ServerTestSuite) TestPingInvalidAddress() {
	c, rec := s.newContext(http.MethodGet, "/ping?address=", "")
	s.NoError(s.api.ping(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.prober.AssertNotCalled(s.T(), "Probe", mock.Anything, mock.Anything, mock.Anything)
}

// TestRoutes tests routing through the full handler
func (s *ServerTestSuite) TestRoutes() {
	s.list.On("Snapshot").Return(coordinator.View{State: coordinator.StateLoading, Entries: []models.ServerEntry{}})

	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/servers", nil))
	s.Equal(http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger.yml", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Server List API")

	rec = httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Server List API Documentation")

	rec = httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	s.Equal(http.StatusNotFound, rec.Code)
}

// TestServerSuite runs the server test suite
func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
