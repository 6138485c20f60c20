package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/services"
	"github.com/soaringjerry/gradtrack/internal/session"
)

type testServer struct {
	*httptest.Server
	router *Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hub := kv.NewHub()
	t.Cleanup(hub.Close)
	rt := NewRouter(Options{
		Store:       kv.NewShared(kv.NewMemoryStore(), hub),
		Notifier:    hub,
		Cookies:     session.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), false),
		JWTSecret:   []byte("test-secret"),
		HashCost:    bcrypt.MinCost,
		LoginLimit:  100,
		LoginWindow: time.Minute,
	})
	srv := httptest.NewServer(rt.Handler(nil))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, router: rt}
}

type call struct {
	method string
	path   string
	body   any
	token  string
	tab    string
}

func (s *testServer) do(t *testing.T, c call) (*http.Response, []byte) {
	t.Helper()
	var body *bytes.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(c.method, s.URL+c.path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tab != "" {
		req.Header.Set(TabHeader, c.tab)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", c.method, c.path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func registration(email, nationalID, role string) services.RegisterInput {
	return services.RegisterInput{
		Name:            "Ana",
		Surname:         "Vera",
		NationalID:      nationalID,
		Phone:           "0991234567",
		Program:         "Software",
		GraduationYear:  2020,
		BirthDate:       "1998-03-10",
		Email:           email,
		Password:        "Secreto123",
		ConfirmPassword: "Secreto123",
		Role:            role,
	}
}

func (s *testServer) login(t *testing.T, email, role string) string {
	t.Helper()
	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/login",
		body: loginRequest{Email: email, Password: "Secreto123", Role: role}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, resp.StatusCode, body)
	}
	var out loginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out.Token
}

// seed registers a coordinator and an approved graduate and returns their tokens.
func (s *testServer) seed(t *testing.T) (coord, grad string) {
	t.Helper()
	for _, in := range []services.RegisterInput{
		registration("jefe@uleam.edu.ec", "0926687856", "Coordinador"),
		registration("ana@uleam.edu.ec", "1710034065", "Egresado"),
	} {
		if resp, body := s.do(t, call{method: http.MethodPost, path: "/api/register", body: in}); resp.StatusCode != http.StatusCreated {
			t.Fatalf("register %s: %d %s", in.Email, resp.StatusCode, body)
		}
	}
	coord = s.login(t, "jefe@uleam.edu.ec", "Coordinator")
	if resp, body := s.do(t, call{method: http.MethodPost, path: "/api/users/ana@uleam.edu.ec/approve", token: coord}); resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: %d %s", resp.StatusCode, body)
	}
	return coord, s.login(t, "ana@uleam.edu.ec", "Graduate")
}

func TestLoginRequiresApproval(t *testing.T) {
	s := newTestServer(t)
	in := registration("ana@uleam.edu.ec", "1710034065", "Egresado")
	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/register", body: in})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d %s", resp.StatusCode, body)
	}
	if bytes.Contains(body, []byte("passwordHash")) {
		t.Fatalf("password hash leaked: %s", body)
	}

	resp, body = s.do(t, call{method: http.MethodPost, path: "/api/login?lang=es",
		body: loginRequest{Email: in.Email, Password: in.Password, Role: "Graduate"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login before approval: %d", resp.StatusCode)
	}
	var e errorBody
	_ = json.Unmarshal(body, &e)
	if !strings.Contains(e.Error, "revisión") {
		t.Fatalf("error = %+v", e)
	}

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/register", body: in})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: %d", resp.StatusCode)
	}
}

func TestValidationErrorNamesField(t *testing.T) {
	s := newTestServer(t)
	in := registration("ana@uleam.edu.ec", "1710034065", "Egresado")
	in.Name = " "
	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/register?lang=en", body: in})
	var e errorBody
	_ = json.Unmarshal(body, &e)
	if resp.StatusCode != http.StatusBadRequest || e.Field != "name" || e.Error != "Enter your name." {
		t.Fatalf("response = %d %+v", resp.StatusCode, e)
	}
}

func TestCookieSessionAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Jar: jar}

	raw, _ := json.Marshal(loginRequest{Email: "ana@uleam.edu.ec", Password: "Secreto123", Role: "graduate"})
	var resp *http.Response
	resp, err = client.Post(s.URL+"/api/login", "application/json", bytes.NewReader(raw))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %v %v", err, resp)
	}
	resp.Body.Close()

	resp, err = client.Get(s.URL + "/api/me")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("me with cookie: %v %v", err, resp)
	}
	var me models.Session
	_ = json.NewDecoder(resp.Body).Decode(&me)
	resp.Body.Close()
	if me.Email != "ana@uleam.edu.ec" || me.Role != models.RoleGraduate {
		t.Fatalf("me = %+v", me)
	}

	resp, _ = client.Post(s.URL+"/api/logout", "application/json", nil)
	resp.Body.Close()
	resp, _ = client.Get(s.URL + "/api/me")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d", resp.StatusCode)
	}
}

func TestSurveyPublishedToGraduate(t *testing.T) {
	s := newTestServer(t)
	coord, grad := s.seed(t)

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/surveys", token: coord,
		body: createSurveyRequest{Title: "Seguimiento", Questions: []string{"¿Trabaja?", "¿Dónde?"}, TargetAll: true}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create survey: %d %s", resp.StatusCode, body)
	}
	var sv models.Survey
	_ = json.Unmarshal(body, &sv)

	resp, _ = s.do(t, call{method: http.MethodPost, path: "/api/surveys", token: grad,
		body: createSurveyRequest{Title: "x", Questions: []string{"q"}}})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("graduate creating survey: %d", resp.StatusCode)
	}

	_, body = s.do(t, call{method: http.MethodGet, path: "/api/views/graduate", token: grad})
	var gv struct {
		Surveys []struct {
			SurveyID string `json:"surveyId"`
			Fields   []struct {
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"surveys"`
	}
	_ = json.Unmarshal(body, &gv)
	if len(gv.Surveys) != 1 || gv.Surveys[0].SurveyID != sv.ID || len(gv.Surveys[0].Fields) != 2 {
		t.Fatalf("graduate view = %s", body)
	}

	_, body = s.do(t, call{method: http.MethodGet, path: "/api/surveys/" + sv.ID + "/form", token: grad})
	if strings.Count(string(body), "<input ") != 2 {
		t.Fatalf("form = %s", body)
	}

	form := url.Values{"q-0": {"Yes"}, "q-1": {""}}
	req, _ := http.NewRequest(http.MethodPost, s.URL+"/api/surveys/"+sv.ID+"/responses", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+grad)
	r2, err := s.Client().Do(req)
	if err != nil || r2.StatusCode != http.StatusCreated {
		t.Fatalf("submit: %v %v", err, r2)
	}
	r2.Body.Close()

	_, body = s.do(t, call{method: http.MethodGet, path: "/api/responses", token: coord})
	var rs []models.Response
	_ = json.Unmarshal(body, &rs)
	if len(rs) != 1 || rs[0].Email != "ana@uleam.edu.ec" || len(rs[0].Answers) != 2 || rs[0].Answers[0] != "Yes" || rs[0].Answers[1] != "" {
		t.Fatalf("responses = %s", body)
	}

	resp, _ = s.do(t, call{method: http.MethodGet, path: "/api/responses", token: grad})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("graduate listing responses: %d", resp.StatusCode)
	}
}

func TestTrainingDeleteNeedsConfirm(t *testing.T) {
	s := newTestServer(t)
	coord, _ := s.seed(t)
	_, body := s.do(t, call{method: http.MethodPost, path: "/api/trainings", token: coord,
		body: map[string]string{"title": "Excel", "description": "Sábados"}})
	var tr models.Training
	_ = json.Unmarshal(body, &tr)
	if !strings.HasPrefix(tr.ID, "cap_") {
		t.Fatalf("training = %s", body)
	}
	if resp, _ := s.do(t, call{method: http.MethodDelete, path: "/api/trainings/" + tr.ID, token: coord}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unconfirmed delete: %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, call{method: http.MethodDelete, path: "/api/trainings/" + tr.ID + "?confirm=true", token: coord}); resp.StatusCode != http.StatusOK {
		t.Fatalf("confirmed delete: %d", resp.StatusCode)
	}
}

func TestExportAndStats(t *testing.T) {
	s := newTestServer(t)
	coord, grad := s.seed(t)

	if resp, _ := s.do(t, call{method: http.MethodGet, path: "/api/export"}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous export: %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, call{method: http.MethodGet, path: "/api/export", token: grad}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("graduate export: %d", resp.StatusCode)
	}
	resp, body := s.do(t, call{method: http.MethodGet, path: "/api/export?format=zip", token: coord})
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/zip" || len(body) == 0 {
		t.Fatalf("zip export: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	resp, body = s.do(t, call{method: http.MethodGet, path: "/api/export?table=users", token: coord})
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"ana@uleam.edu.ec"`)) {
		t.Fatalf("users csv: %d %s", resp.StatusCode, body)
	}
	if resp, _ := s.do(t, call{method: http.MethodGet, path: "/api/export?table=responses", token: coord}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty responses export: %d", resp.StatusCode)
	}

	_, body = s.do(t, call{method: http.MethodGet, path: "/api/stats", token: coord})
	var st models.Stats
	_ = json.Unmarshal(body, &st)
	if st.TotalUsers != 2 || st.Approved != 2 {
		t.Fatalf("stats = %s", body)
	}
	s.do(t, call{method: http.MethodPut, path: "/api/stats", token: coord, body: models.Stats{TotalUsers: 150, EmployedPct: 68}})
	_, body = s.do(t, call{method: http.MethodGet, path: "/api/stats", token: coord})
	_ = json.Unmarshal(body, &st)
	if st.TotalUsers != 150 {
		t.Fatalf("snapshot stats = %s", body)
	}
}

type sseReader struct {
	events chan renderEvent
}

func openEvents(t *testing.T, s *testServer, token, tab string) *sseReader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"/api/events?tab="+tab, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status %d", resp.StatusCode)
	}
	r := &sseReader{events: make(chan renderEvent, 16)}
	go func() {
		defer resp.Body.Close()
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev renderEvent
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev) == nil {
				r.events <- ev
			}
		}
	}()
	return r
}

func (r *sseReader) next(t *testing.T) renderEvent {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for render event")
	}
	return renderEvent{}
}

func (r *sseReader) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected render event %+v", ev)
	case <-time.After(wait):
	}
}

func TestEventsFollowWrites(t *testing.T) {
	s := newTestServer(t)
	coord, _ := s.seed(t)

	a := openEvents(t, s, coord, "tab-a")
	b := openEvents(t, s, coord, "tab-b")
	if ev := a.next(t); ev.Key != "" || ev.Tab != "tab-a" {
		t.Fatalf("initial a = %+v", ev)
	}
	b.next(t)

	resp, body := s.do(t, call{method: http.MethodPost, path: "/api/surveys", token: coord, tab: "tab-a",
		body: createSurveyRequest{Title: "Seguimiento", Questions: []string{"q1"}, TargetAll: true}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, body)
	}
	if ev := a.next(t); ev.Key != "surveys" || ev.Section != "surveys" {
		t.Fatalf("writer event = %+v", ev)
	}
	if ev := b.next(t); ev.Key != "surveys" {
		t.Fatalf("other tab event = %+v", ev)
	}
	a.none(t, 200*time.Millisecond)
	b.none(t, 200*time.Millisecond)

	if got := s.router.Tabs().IDs(); len(got) != 2 {
		t.Fatalf("registered tabs = %v", got)
	}
	_, body = s.do(t, call{method: http.MethodGet, path: "/api/views/coordinator?snapshot=1", token: coord})
	if !bytes.Contains(body, []byte(`"stale":true`)) || !bytes.Contains(body, []byte("Seguimiento")) {
		t.Fatalf("snapshot view = %s", body)
	}
}

func TestBearerLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	coord, grad := s.seed(t)

	if resp, body := s.do(t, call{method: http.MethodPost, path: "/api/logout", token: grad}); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: %d %s", resp.StatusCode, body)
	}
	if resp, body := s.do(t, call{method: http.MethodGet, path: "/api/me", token: grad}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d %s", resp.StatusCode, body)
	}
	if resp, _ := s.do(t, call{method: http.MethodGet, path: "/api/me", token: coord}); resp.StatusCode != http.StatusOK {
		t.Fatalf("other session ended by logout: %d", resp.StatusCode)
	}
	if fresh := s.login(t, "ana@uleam.edu.ec", "Graduate"); fresh == grad {
		t.Fatalf("login reissued the revoked token")
	}
}

func TestApprovedDirectoryQuery(t *testing.T) {
	s := newTestServer(t)
	coord, grad := s.seed(t)

	emails := func(path string) []string {
		t.Helper()
		resp, body := s.do(t, call{method: http.MethodGet, path: path, token: coord})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: %d %s", path, resp.StatusCode, body)
		}
		var users []models.User
		_ = json.Unmarshal(body, &users)
		out := []string{}
		for _, u := range users {
			out = append(out, u.Email)
		}
		return out
	}
	if got := emails("/api/users/approved"); len(got) != 2 {
		t.Fatalf("approved = %v", got)
	}
	if got := emails("/api/users/approved?q=1710034&program=software&year=2020"); len(got) != 1 || got[0] != "ana@uleam.edu.ec" {
		t.Fatalf("filtered = %v", got)
	}
	if got := emails("/api/users/approved?year=2019"); len(got) != 0 {
		t.Fatalf("year filter = %v", got)
	}
	if resp, _ := s.do(t, call{method: http.MethodGet, path: "/api/users/approved?year=abc", token: coord}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad year: %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, call{method: http.MethodGet, path: "/api/users/approved", token: grad}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("graduate listing directory: %d", resp.StatusCode)
	}
}

func TestEventsTabIDsScopedPerAccount(t *testing.T) {
	s := newTestServer(t)
	coord, grad := s.seed(t)

	if resp, _ := s.do(t, call{method: http.MethodGet, path: "/api/events?tab=tab-a"}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous events: %d", resp.StatusCode)
	}

	a := openEvents(t, s, coord, "tab-a")
	a.next(t)
	resp, body := s.do(t, call{method: http.MethodGet, path: "/api/events?tab=tab-a", token: coord})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second live tab-a: %d %s", resp.StatusCode, body)
	}

	// the same id under another account is a different tab
	g := openEvents(t, s, grad, "tab-a")
	g.next(t)
	if got := s.router.Tabs().IDs(); len(got) != 2 {
		t.Fatalf("registered tabs = %v", got)
	}

	// a graduate write tagged tab-a must not count as the coordinator tab's own write
	resp, body = s.do(t, call{method: http.MethodPut, path: "/api/profile", token: grad, tab: "tab-a",
		body: map[string]string{"address": "Manta"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update profile: %d %s", resp.StatusCode, body)
	}
	if ev := g.next(t); ev.Key != "users" {
		t.Fatalf("writer tab event = %+v", ev)
	}
	if ev := a.next(t); ev.Key != "users" || ev.Tab != "tab-a" {
		t.Fatalf("coordinator tab event = %+v", ev)
	}
}
