package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"marquee/auth"
	"marquee/database"
	"marquee/jobs"
	"marquee/lists"
	"marquee/models"
	"marquee/repository"
	"marquee/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	db       *database.DB
	app      *App
	router   *mux.Router
	sessions *repository.SessionRepository
	users    *repository.UserRepository
}

func setupTestApp(t *testing.T, tmdb http.HandlerFunc) *testApp {
	testDB, err := database.NewDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, testDB.InitSchema(context.Background()))
	t.Cleanup(func() {
		if err := testDB.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})

	if tmdb == nil {
		tmdb = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }
	}
	tmdbServer := httptest.NewServer(tmdb)
	t.Cleanup(tmdbServer.Close)

	users := repository.NewUserRepository(testDB)
	sessions := repository.NewSessionRepository(testDB)
	limiter := auth.NewRateLimiter(1000, 1000)
	app := &App{
		watched:     lists.NewWatchedService(repository.NewWatchedRepository(testDB)),
		watchlist:   lists.NewWatchlistService(repository.NewWatchlistRepository(testDB)),
		tmdbService: services.NewTMDBService("test-key", tmdbServer.URL, 2*time.Second),
		auth:        auth.NewService(users, sessions, time.Hour, auth.WithCost(bcrypt.MinCost)),
		limiter:     limiter,
		jobManager:  jobs.NewJobManager(jobs.NewSessionPurgeJob(sessions), time.Hour, limiter),
	}
	return &testApp{db: testDB, app: app, router: app.Router(), sessions: sessions, users: users}
}

// login creates a user with a live session and returns its token
func (ta *testApp) login(t *testing.T, id string) string {
	ctx := context.Background()
	require.NoError(t, ta.users.Create(ctx, &models.User{ID: id, Email: id + "@example.com"}))
	token := "token-" + id
	require.NoError(t, ta.sessions.Create(ctx, &models.Session{Token: token, UserID: id, ExpiresAt: time.Now().Add(time.Hour)}))
	return token
}

func (ta *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ta.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

type errorBody struct {
	Error string `json:"error"`
}

type itemBody struct {
	Item models.WatchedItem `json:"item"`
}

func TestHealthHandler(t *testing.T) {
	ta := setupTestApp(t, nil)

	rr := ta.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestCreateWatched(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	rr := ta.do(t, "POST", "/watched", token, map[string]any{
		"tmdbId": 155, "type": "movie", "watchedDate": "2024-01-01", "rating": 9, "notes": "great",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body := decode[itemBody](t, rr)
	assert.Equal(t, "u1", body.Item.UserID)
	assert.Equal(t, 9, body.Item.Rating)
	assert.Equal(t, 155, body.Item.TMDBID)
	require.NotNil(t, body.Item.Notes)
	assert.Equal(t, "great", *body.Item.Notes)
}

func TestCreateWatched_Validation(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing rating", `{"tmdbId":1,"type":"movie","watchedDate":"2024-01-01"}`, "Missing required fields: tmdbId, type, watchedDate, rating"},
		{"bad type", `{"tmdbId":1,"type":"book","watchedDate":"2024-01-01","rating":5}`, "Invalid type. Must be 'movie' or 'tv'"},
		{"rating zero", `{"tmdbId":1,"type":"movie","watchedDate":"2024-01-01","rating":0}`, "Rating must be between 1 and 10"},
		{"rating eleven", `{"tmdbId":1,"type":"tv","watchedDate":"2024-01-01","rating":11}`, "Rating must be between 1 and 10"},
		{"malformed json", `{"tmdbId":`, "Invalid request body"},
		{"wrong json type", `{"tmdbId":"abc","type":"movie","watchedDate":"2024-01-01","rating":5}`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ta.do(t, "POST", "/watched", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.want, decode[errorBody](t, rr).Error)
		})
	}
}

func TestWatched_Unauthorized(t *testing.T) {
	ta := setupTestApp(t, nil)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/watched"},
		{"POST", "/watched"},
		{"GET", "/watched/1"},
		{"GET", "/watched/abc"},
		{"PUT", "/watched/1"},
		{"DELETE", "/watched/1"},
		{"GET", "/watchlist"},
		{"POST", "/watchlist"},
		{"DELETE", "/watchlist/1"},
	} {
		rr := ta.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Unauthorized", decode[errorBody](t, rr).Error)
	}

	// An unknown token is treated as anonymous
	rr := ta.do(t, "GET", "/watched", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionLookupFailure(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	rr := ta.do(t, "GET", "/watched", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	_, err := ta.db.ExecContext(context.Background(), "ALTER TABLE sessions RENAME TO sessions_broken")
	require.NoError(t, err)

	for _, path := range []string{"/watched", "/auth/me", "/metadata/search?q=x&type=movie"} {
		rr = ta.do(t, "GET", path, token, nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code, path)
		assert.Equal(t, "Internal server error", decode[errorBody](t, rr).Error, path)
	}

	// Anonymous requests never touch the sessions table
	rr = ta.do(t, "GET", "/watched", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	ta := setupTestApp(t, nil)

	rr := ta.do(t, "GET", "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Not found", decode[errorBody](t, rr).Error)

	rr = ta.do(t, "PATCH", "/watched", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Method not allowed", decode[errorBody](t, rr).Error)
}

func TestGetWatched_OtherUser(t *testing.T) {
	ta := setupTestApp(t, nil)
	owner := ta.login(t, "u1")
	other := ta.login(t, "u2")

	rr := ta.do(t, "POST", "/watched", owner, map[string]any{
		"tmdbId": 155, "type": "movie", "watchedDate": "2024-01-01", "rating": 9,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[itemBody](t, rr).Item.ID
	path := "/watched/" + strconv.Itoa(id)

	rr = ta.do(t, "GET", path, other, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Item not found", decode[errorBody](t, rr).Error)

	assert.Equal(t, http.StatusNotFound, ta.do(t, "PUT", path, other, `{"rating":1}`).Code)
	assert.Equal(t, http.StatusNotFound, ta.do(t, "DELETE", path, other, nil).Code)

	rr = ta.do(t, "GET", path, owner, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 9, decode[itemBody](t, rr).Item.Rating)
}

func TestWatched_InvalidID(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	for _, id := range []string{"abc", "0", "-1", "1.5", "123456789012345678901"} {
		rr := ta.do(t, "GET", "/watched/"+id, token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, id)
		assert.Equal(t, "Invalid ID", decode[errorBody](t, rr).Error, id)
	}

	assert.Equal(t, http.StatusBadRequest, ta.do(t, "DELETE", "/watchlist/abc", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, ta.do(t, "PUT", "/watched/abc", token, `{}`).Code)
}

func TestUpdateWatched_PartialMerge(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	rr := ta.do(t, "POST", "/watched", token, map[string]any{
		"tmdbId": 155, "type": "movie", "watchedDate": "2024-01-01", "rating": 5, "notes": "ok",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[itemBody](t, rr).Item
	path := "/watched/" + strconv.Itoa(created.ID)

	rr = ta.do(t, "PUT", path, token, `{"rating":9}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[itemBody](t, rr).Item
	assert.Equal(t, 9, updated.Rating)
	assert.Equal(t, created.TMDBID, updated.TMDBID)
	assert.Equal(t, created.Type, updated.Type)
	assert.Equal(t, created.WatchedDate, updated.WatchedDate)
	assert.Equal(t, created.Notes, updated.Notes)

	rr = ta.do(t, "PUT", path, token, `{"notes":null,"type":null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode[itemBody](t, rr).Item
	assert.Nil(t, updated.Notes)
	assert.Equal(t, models.MediaTypeMovie, updated.Type)

	rr = ta.do(t, "PUT", path, token, `{"rating":11}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Rating must be between 1 and 10", decode[errorBody](t, rr).Error)
}

func TestDeleteWatched_Idempotent(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	rr := ta.do(t, "POST", "/watched", token, map[string]any{
		"tmdbId": 1, "type": "tv", "watchedDate": "2024-01-01", "rating": 7,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	path := "/watched/" + strconv.Itoa(decode[itemBody](t, rr).Item.ID)

	rr = ta.do(t, "DELETE", path, token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]bool{"success": true}, decode[map[string]bool](t, rr))

	for range 2 {
		rr = ta.do(t, "DELETE", path, token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}
}

func TestListWatched_Filters(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	for i, date := range []string{"2024-03-01", "2024-01-15", "2024-02-10"} {
		rr := ta.do(t, "POST", "/watched", token, map[string]any{
			"tmdbId": i + 1, "type": "movie", "watchedDate": date, "rating": 5, "notes": "note " + date,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	type listBody struct {
		Items []models.WatchedItem `json:"items"`
	}

	rr := ta.do(t, "GET", "/watched", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[listBody](t, rr).Items
	require.Len(t, items, 3)
	assert.Equal(t, "2024-01-15", items[0].WatchedDate)

	rr = ta.do(t, "GET", "/watched?dateFrom=2024-02-01&dateTo=2024-03-01", token, nil)
	items = decode[listBody](t, rr).Items
	assert.Len(t, items, 2)

	rr = ta.do(t, "GET", "/watched?search=01-15", token, nil)
	items = decode[listBody](t, rr).Items
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].TMDBID)

	// Empty list is an empty array, not null
	other := ta.login(t, "u2")
	rr = ta.do(t, "GET", "/watched", other, nil)
	assert.JSONEq(t, `{"items":[]}`, rr.Body.String())
}

func TestWatchlist_DuplicateLaw(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")
	body := map[string]any{"tmdbId": 603, "type": "movie", "addedDate": "2024-05-01"}

	rr := ta.do(t, "POST", "/watchlist", token, body)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = ta.do(t, "POST", "/watchlist", token, body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Item already in watchlist", decode[errorBody](t, rr).Error)

	body["type"] = "tv"
	rr = ta.do(t, "POST", "/watchlist", token, body)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = ta.do(t, "GET", "/watchlist", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Items []models.WatchlistItem `json:"items"`
	}](t, rr)
	require.Len(t, list.Items, 2)

	rr = ta.do(t, "DELETE", "/watchlist/"+strconv.Itoa(list.Items[0].ID), token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ta.do(t, "DELETE", "/watchlist/"+strconv.Itoa(list.Items[0].ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWatchlist_Validation(t *testing.T) {
	ta := setupTestApp(t, nil)
	token := ta.login(t, "u1")

	rr := ta.do(t, "POST", "/watchlist", token, `{"tmdbId":1,"type":"movie"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing required fields: tmdbId, type, addedDate", decode[errorBody](t, rr).Error)

	rr = ta.do(t, "POST", "/watchlist", token, `{"tmdbId":1,"type":"Movie","addedDate":"2024-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid type. Must be 'movie' or 'tv'", decode[errorBody](t, rr).Error)
}

func TestAuthFlow(t *testing.T) {
	ta := setupTestApp(t, nil)

	rr := ta.do(t, "POST", "/auth/signup", "", map[string]string{"email": "ann@example.com", "password": "pw", "name": "Ann"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	signup := decode[struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}](t, rr)
	assert.Equal(t, "User created successfully", signup.Message)
	assert.Equal(t, "ann@example.com", signup.User.Email)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = ta.do(t, "POST", "/auth/signup", "", map[string]string{"email": "ann@example.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "User with this email already exists", decode[errorBody](t, rr).Error)

	rr = ta.do(t, "POST", "/auth/signin", "", map[string]string{"email": "ann@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid credentials", decode[errorBody](t, rr).Error)

	rr = ta.do(t, "POST", "/auth/signin", "", map[string]string{"email": "ann@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rr.Code)
	signin := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, rr)
	assert.NotEmpty(t, signin.Token)
	assert.True(t, strings.Contains(rr.Header().Get("Set-Cookie"), auth.SessionCookie+"="+signin.Token))

	rr = ta.do(t, "GET", "/auth/me", signin.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, signup.User.ID, decode[struct {
		User models.User `json:"user"`
	}](t, rr).User.ID)

	// The cookie works as well as the bearer header
	req := httptest.NewRequest("GET", "/watched", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: signin.Token})
	cookieRR := httptest.NewRecorder()
	ta.router.ServeHTTP(cookieRR, req)
	assert.Equal(t, http.StatusOK, cookieRR.Code)

	rr = ta.do(t, "POST", "/auth/signout", signin.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ta.do(t, "GET", "/auth/me", signin.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignup_Validation(t *testing.T) {
	ta := setupTestApp(t, nil)

	rr := ta.do(t, "POST", "/auth/signup", "", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Email and password are required", decode[errorBody](t, rr).Error)

	rr = ta.do(t, "POST", "/auth/signup", "", `{"email":"nope","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid email address", decode[errorBody](t, rr).Error)
}

func TestAuth_RateLimited(t *testing.T) {
	ta := setupTestApp(t, nil)
	ta.app.limiter = auth.NewRateLimiter(0.001, 1)
	router := ta.app.Router()

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest("POST", "/auth/signin", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	// Non-auth routes are not limited
	for range 3 {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestMetadataSearch(t *testing.T) {
	ta := setupTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tv", r.URL.Path)
		_, _ = w.Write([]byte(`{"results":[{"id":1396,"name":"Breaking Bad"}]}`))
	})

	rr := ta.do(t, "GET", "/metadata/search?q=breaking&type=tv", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	results := decode[struct {
		Results []models.MediaSummary `json:"results"`
	}](t, rr).Results
	require.Len(t, results, 1)
	assert.Equal(t, "Breaking Bad", results[0].Title)
}

func TestMetadataSearch_BadParams(t *testing.T) {
	ta := setupTestApp(t, nil)

	for _, q := range []string{"", "?q=x", "?type=movie", "?q=x&type=book", "?q=x&type=Movie"} {
		rr := ta.do(t, "GET", "/metadata/search"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		assert.Equal(t,
			"Missing or invalid query parameters: q (search term) and type (movie or tv) are required",
			decode[errorBody](t, rr).Error)
	}
}

func TestMetadataSearch_UpstreamFailure(t *testing.T) {
	ta := setupTestApp(t, nil)

	rr := ta.do(t, "GET", "/metadata/search?q=x&type=movie", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to perform search. Please try again later.", decode[errorBody](t, rr).Error)
}

func TestMetadataDetails(t *testing.T) {
	ta := setupTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/550":
			_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club","genres":[{"id":18,"name":"Drama"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	rr := ta.do(t, "GET", "/metadata/movie/550", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	detail := decode[models.MediaDetail](t, rr)
	assert.Equal(t, "Fight Club", detail.Title)
	assert.Equal(t, []string{"Drama"}, detail.Genres)

	rr = ta.do(t, "GET", "/metadata/tv/1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to fetch TV show details", decode[errorBody](t, rr).Error)

	rr = ta.do(t, "GET", "/metadata/movie/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid movie ID", decode[errorBody](t, rr).Error)

	rr = ta.do(t, "GET", "/metadata/tv/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid TV show ID", decode[errorBody](t, rr).Error)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{" 42 ", 42, true},
		{"007", 7, true},
		{"0", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"12a", 0, false},
		{"-3", 0, false},
		{"+3", 0, false},
		{"99999999999999999999", 0, false},
		{"123456789012345678901", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
