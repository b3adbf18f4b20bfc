package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"correspondent/internal/domain"
	"correspondent/internal/logging"
	"correspondent/internal/usecase"
)

type stubRoster struct {
	users []domain.User
	err   error
}

func (s *stubRoster) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users, s.err
}

func (s *stubRoster) AddUser(ctx context.Context, u domain.User) (domain.User, error) {
	if s.err != nil {
		return domain.User{}, s.err
	}
	u.ID = "generated-id"
	s.users = append(s.users, u)
	return u, nil
}

type stubRunner struct {
	summary domain.RunSummary
	err     error
}

func (s *stubRunner) RunReport(ctx context.Context) (domain.RunSummary, error) {
	return s.summary, s.err
}

func newTestServer(roster *stubRoster, runner *stubRunner) *httptest.Server {
	h := NewHandler(roster, runner, logging.New("error"))
	return httptest.NewServer(NewRouter(h))
}

func TestListUsers(t *testing.T) {
	roster := &stubRoster{users: []domain.User{{
		ID:        "u1",
		Name:      "Ada",
		Email:     "ada@example.org",
		Interests: []string{"rust"},
		Sites:     []string{"https://a.example.org"},
	}}}
	server := newTestServer(roster, &stubRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "Ada", payload[0]["name"])
	assert.Equal(t, []any{"https://a.example.org"}, payload[0]["sites_of_interest"])
}

func TestAddUserJSON(t *testing.T) {
	roster := &stubRoster{}
	server := newTestServer(roster, &stubRunner{})
	defer server.Close()

	body := `{
		"name": "Ada",
		"email": "ada@example.org",
		"interests": ["Rust", "wasm"],
		"sites_of_interest": ["https://a.example.org"]
	}`
	resp, err := http.Post(server.URL+"/api/users", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "generated-id", payload["id"])
	assert.Equal(t, []any{"rust", "wasm"}, payload["interests"])
}

func TestAddUserForm(t *testing.T) {
	roster := &stubRoster{}
	server := newTestServer(roster, &stubRunner{})
	defer server.Close()

	form := url.Values{}
	form.Set("name", "Ada")
	form.Set("email", "ada@example.org")
	form.Set("interests", "rust, wasm , rust")
	form.Set("sites", "https://a.example.org,https://b.example.org")

	resp, err := http.Post(server.URL+"/api/users",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, roster.users, 1)
	assert.Equal(t, []string{"rust", "wasm"}, roster.users[0].Interests)
	assert.Len(t, roster.users[0].Sites, 2)
}

func TestAddUserValidation(t *testing.T) {
	server := newTestServer(&stubRoster{}, &stubRunner{})
	defer server.Close()

	cases := []string{
		`{"name": "", "email": "a@example.org", "interests": ["x"], "sites_of_interest": ["https://a"]}`,
		`{"name": "Ada", "email": "not-an-email", "interests": ["x"], "sites_of_interest": ["https://a"]}`,
		`{"name": "Ada", "email": "a@example.org", "interests": [], "sites_of_interest": ["https://a"]}`,
		`{"name": "Ada", "email": "a@example.org", "interests": ["x"], "sites_of_interest": []}`,
		`{not json`,
	}
	for _, body := range cases {
		resp, err := http.Post(server.URL+"/api/users", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
	}
}

func TestAddUserDuplicateEmailConflict(t *testing.T) {
	roster := &stubRoster{err: domain.ErrEmailTaken}
	server := newTestServer(roster, &stubRunner{})
	defer server.Close()

	body := `{
		"name": "Ada",
		"email": "ada@example.org",
		"interests": ["rust"],
		"sites_of_interest": ["https://a.example.org"]
	}`
	resp, err := http.Post(server.URL+"/api/users", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var payload map[string]map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "email_taken", payload["error"]["code"])
}

func TestRunReportReturnsSummary(t *testing.T) {
	runner := &stubRunner{summary: domain.RunSummary{
		UsersProcessed: 3,
		UsersFailed:    1,
		ItemsDelivered: 12,
		SiteFailures:   2,
	}}
	server := newTestServer(&stubRoster{}, runner)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/report/run", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, float64(3), payload["users_processed"])
	assert.Equal(t, float64(12), payload["items_delivered"])
}

func TestRunReportConflict(t *testing.T) {
	runner := &stubRunner{err: usecase.ErrRunInProgress}
	server := newTestServer(&stubRoster{}, runner)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/report/run", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(&stubRoster{}, &stubRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
