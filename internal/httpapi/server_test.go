package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/kragdb/internal/httpapi"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/service"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store/memory"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

// 12:00 at the facility (UTC+2).
var noon = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	ts     *httptest.Server
	admin  *service.AdminService
	passes *memory.PassStore
	events *memory.AccessEventStore
	member user.User
}

// newTestServer wires up the full dependency graph using in-memory stores
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
// It seeds an admin (admin@example.com / admin-secret) and a member
// (member@example.com / member-secret).
func newTestServer(t *testing.T) testEnv {
	t.Helper()

	logger := zerolog.New(io.Discard)
	passes := memory.NewPassStore()
	users := memory.NewUserStore(passes)
	events := memory.NewAccessEventStore()

	clock := func() time.Time { return noon }
	accessSvc := service.NewAccessService(passes, events, logger).WithClock(clock)
	adminSvc := service.NewAdminService(users, passes, logger).WithClock(clock)

	ctx := context.Background()
	_, err := adminSvc.CreateUser(ctx, service.Operator, types.CreateUserRequest{
		Username: "admin", Email: "admin@example.com", Password: "admin-secret", Permissions: "ADMIN",
	})
	require.NoError(t, err)
	member, err := adminSvc.CreateUser(ctx, service.Operator, types.CreateUserRequest{
		Username: "member", Email: "member@example.com", Password: "member-secret",
	})
	require.NoError(t, err)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:        logger,
		Addr:          ":0",
		AccessService: accessSvc,
		AdminService:  adminSvc,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return testEnv{ts: ts, admin: adminSvc, passes: passes, events: events, member: member}
}

func (e testEnv) issue(t *testing.T, uid user.ID, sessions uint32) pass.UserPass {
	t.Helper()
	p, err := e.admin.IssuePass(context.Background(), service.Operator, types.IssuePassRequest{
		UserID: int32(uid), Sessions: sessions,
	})
	require.NoError(t, err)
	return p
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// do sends an admin request with basic credentials.
func do(t *testing.T, method, url, email, password, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if email != "" {
		req.SetBasicAuth(email, password)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ── Access request ───────────────────────────────────────────────────────────

func TestAccessRequest_SessionGranted(t *testing.T) {
	env := newTestServer(t)
	p := env.issue(t, env.member.ID, 2)

	resp := postJSON(t, env.ts.URL+"/v1/access_request",
		fmt.Sprintf(`{"user_id":%d,"module_id":"door-001"}`, env.member.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	got := decode[types.AccessResponse](t, resp)
	assert.True(t, got.OK)
	assert.True(t, got.Granted)
	assert.Equal(t, "session_pass_session", got.Method)
	assert.Equal(t, uint32(1), got.SessionsLeft)
	assert.Equal(t, int64(p.ID), got.PassID)

	events := env.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "door-001", events[0].ModuleID)
}

func TestAccessRequest_DeniedIs200(t *testing.T) {
	env := newTestServer(t)
	env.issue(t, env.member.ID, 0)

	resp := postJSON(t, env.ts.URL+"/v1/access_request", fmt.Sprintf(`{"user_id":%d}`, env.member.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[types.AccessResponse](t, resp)
	assert.True(t, got.OK)
	assert.False(t, got.Granted)
	assert.Equal(t, "no_valid_pass", got.Reason)
}

func TestAccessRequest_NoPass404(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.ts.URL+"/v1/access_request", `{"user_id":42}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	got := decode[types.AccessResponse](t, resp)
	assert.False(t, got.Granted)
	assert.Equal(t, "no_pass", got.Reason)
}

func TestAccessRequest_BadBodies(t *testing.T) {
	env := newTestServer(t)

	cases := map[string]struct {
		body string
		code string
	}{
		"invalid json":   {`not json at all`, "bad_json"},
		"unknown field":  {`{"user_id":1,"card_id":"AABB"}`, "bad_json"},
		"missing user":   {`{"module_id":"door-001"}`, "invalid_user_id"},
		"negative user":  {`{"user_id":-3}`, "invalid_user_id"},
		"string user id": {`{"user_id":"1"}`, "bad_json"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, env.ts.URL+"/v1/access_request", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.code, decode[types.ErrorResponse](t, resp).Error)
		})
	}
}

func TestAccessRequest_Protobuf(t *testing.T) {
	env := newTestServer(t)
	env.issue(t, env.member.ID, 1)

	msg, err := structpb.NewStruct(map[string]any{
		"user_id":   int32(env.member.ID),
		"module_id": "door-001",
	})
	require.NoError(t, err)
	body, err := proto.Marshal(msg)
	require.NoError(t, err)

	resp, err := http.Post(env.ts.URL+"/v1/access_request", "application/x-protobuf", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &out))

	fields := out.AsMap()
	assert.Equal(t, true, fields["granted"])
	assert.Equal(t, "session_pass_session", fields["method"])
	assert.Equal(t, float64(0), fields["sessions_left"])
}

func TestAccessRequest_ProtobufRejectsFractionalID(t *testing.T) {
	env := newTestServer(t)

	msg, err := structpb.NewStruct(map[string]any{"user_id": 1.5})
	require.NoError(t, err)
	body, err := proto.Marshal(msg)
	require.NoError(t, err)

	resp, err := http.Post(env.ts.URL+"/v1/access_request", "application/x-protobuf", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Admin: authentication ────────────────────────────────────────────────────

func TestAdmin_RequiresCredentials(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodGet, env.ts.URL+"/v1/admin/me", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	resp = do(t, http.MethodGet, env.ts.URL+"/v1/admin/me", "admin@example.com", "nope", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, env.ts.URL+"/v1/admin/me", "admin@example.com", "admin-secret", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[map[string]any](t, resp)
	assert.Equal(t, "admin", me["username"])
	assert.Equal(t, "[REDACTED]", me["password"])
}

// ── Admin: users ─────────────────────────────────────────────────────────────

func TestAdmin_UserLifecycle(t *testing.T) {
	env := newTestServer(t)
	base := env.ts.URL + "/v1/admin/users"

	resp := do(t, http.MethodPost, base, "admin@example.com", "admin-secret",
		`{"username":"carol","email":"carol@example.com","password":"pw","permissions":"PASS_READ"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	carol := decode[map[string]any](t, resp)
	id := int(carol["id"].(float64))

	resp = do(t, http.MethodPost, base, "admin@example.com", "admin-secret",
		`{"username":"dup","email":"carol@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, base, "admin@example.com", "admin-secret",
		`{"username":"bad","email":"bruh","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"?email=carol@example.com", "admin@example.com", "admin-secret", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[map[string][]map[string]any](t, resp)
	require.Len(t, list["users"], 1)

	resp = do(t, http.MethodPatch, fmt.Sprintf("%s/%d", base, id), "carol@example.com", "pw",
		`{"username":"caz"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "caz", decode[map[string]any](t, resp)["username"])

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, id), "member@example.com", "member-secret", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, id), "admin@example.com", "admin-secret", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), decode[types.CountResponse](t, resp).Count)

	resp = do(t, http.MethodGet, fmt.Sprintf("%s/%d", base, id), "admin@example.com", "admin-secret", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"/abc", "admin@example.com", "admin-secret", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_MemberSeesOnlySelf(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodGet, env.ts.URL+"/v1/admin/users", "member@example.com", "member-secret", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[map[string][]map[string]any](t, resp)
	require.Len(t, list["users"], 1)
	assert.Equal(t, "member", list["users"][0]["username"])
}

// ── Admin: passes ────────────────────────────────────────────────────────────

func TestAdmin_PassLifecycle(t *testing.T) {
	env := newTestServer(t)
	base := env.ts.URL + "/v1/admin/passes"

	resp := do(t, http.MethodPost, base, "admin@example.com", "admin-secret",
		fmt.Sprintf(`{"user_id":%d,"sessions":1}`, env.member.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	p := decode[pass.UserPass](t, resp)
	assert.Equal(t, uint32(1), p.SessionPass.SessionsLeft)

	resp = do(t, http.MethodPost, fmt.Sprintf("%s/%d/sessions", base, p.ID), "admin@example.com", "admin-secret",
		`{"sessions":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint32(5), decode[pass.UserPass](t, resp).SessionPass.SessionsLeft)

	resp = do(t, http.MethodPost, fmt.Sprintf("%s/%d/sessions", base, p.ID), "admin@example.com", "admin-secret",
		`{"sessions":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, fmt.Sprintf("%s/%d/extend", base, p.ID), "admin@example.com", "admin-secret",
		`{"days":30}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, noon.AddDate(0, 0, 30), decode[pass.UserPass](t, resp).TimePass.Expiry)

	resp = do(t, http.MethodPost, fmt.Sprintf("%s/%d/extend", base, p.ID), "admin@example.com", "admin-secret",
		`{"until":"whenever"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The member can read their own passes but not change them.
	resp = do(t, http.MethodGet, base, "member@example.com", "member-secret", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[map[string][]pass.UserPass](t, resp)["passes"], 1)

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, p.ID), "member@example.com", "member-secret", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, p.ID), "admin@example.com", "admin-secret", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, fmt.Sprintf("%s/%d", base, p.ID), "admin@example.com", "admin-secret", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, base, "admin@example.com", "admin-secret", `{"user_id":999}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ── Health ───────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["ok"])
}
