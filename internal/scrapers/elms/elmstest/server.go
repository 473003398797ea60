// Package elmstest serves a small fake of the portal pages the scraper
// reads, it is used by tests across the module.
package elmstest

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"time"
)

const (
	sessionCookie = "MoodleSession"
	loginToken    = "fixture-logintoken"
)

type Course struct {
	Id int64
	// Fullname is the name listed by the course directory.
	Fullname string
	// Title is the heading of the participants page, empty renders a page
	// without one.
	Title string
	Users []int64
	// Status overrides the participants page status when non-zero.
	Status int
}

type Profile struct {
	Name  string
	Email string
	// Delay is waited before responding (or until the request is canceled).
	Delay time.Duration
}

type Fixture struct {
	Username string
	Password string
	Sesskey  string
	Courses  []Course
	// Profiles that aren't in this map answer with 404.
	Profiles map[int64]Profile
	// DuplicateLinks links every participant twice like the real page does.
	DuplicateLinks bool

	LoginPageWithoutToken bool
	SesskeyInScript       bool
	OmitSesskey           bool
	MalformedDirectory    bool
}

// DefaultFixture has two listable courses and one course id (103) whose
// participants page is an error page.
func DefaultFixture() Fixture {
	return Fixture{
		Username: "student",
		Password: "hunter2",
		Sesskey:  "fixtureSesskey1",
		Courses: []Course{
			{
				Id:       101,
				Fullname: "Spring 2024: Data Structures",
				Title:    "Spring 2024 Data Structures: Section 3",
				Users:    []int64{1, 2, 3},
			},
			{
				Id:       102,
				Fullname: "Fall 2023: Capstone Project!!",
				Title:    "Capstone Project!!",
				Users:    []int64{1, 4},
			},
			{
				Id:       103,
				Fullname: "Summer 2023: Removed Course",
			},
		},
		Profiles: map[int64]Profile{
			1: {Name: "Jane Doe", Email: "jane.doe@bscse.uiu.ac.bd"},
			2: {Name: "Smith, John", Email: "john.smith@uiu.ac.bd"},
			4: {Name: "No Email"},
		},
		DuplicateLinks: true,
	}
}

type Server struct {
	*httptest.Server

	fixture  Fixture
	mutex    sync.Mutex
	nextId   int
	sessions map[string]bool
	hits     map[string]int
}

// NewServer starts serving the fixture, the caller must Close it.
func NewServer(fixture Fixture) *Server {
	s := &Server{
		fixture:  fixture,
		sessions: map[string]bool{},
		hits:     map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login/index.php", s.getLogin)
	mux.HandleFunc("POST /login/index.php", s.postLogin)
	mux.HandleFunc("GET /my/", s.dashboard)
	mux.HandleFunc("POST /lib/ajax/service.php", s.ajax)
	mux.HandleFunc("GET /user/index.php", s.roster)
	mux.HandleFunc("GET /user/view.php", s.profile)

	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// Hits returns how many times a request uri (path and query) was requested.
func (s *Server) Hits(requestUri string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.hits[requestUri]
}

// ExpireSessions logs every client out, as if the portal restarted.
func (s *Server) ExpireSessions() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	clear(s.sessions)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mutex.Lock()
		s.hits[r.URL.RequestURI()]++
		s.mutex.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sessionId(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err == nil {
		return cookie.Value
	}

	s.mutex.Lock()
	s.nextId++
	id := fmt.Sprintf("session-%d", s.nextId)
	s.mutex.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/"})
	return id
}

func (s *Server) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sessions[cookie.Value]
}

func render(w http.ResponseWriter, status int, page *template.Template, data any) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, data)
}

func (s *Server) getLogin(w http.ResponseWriter, r *http.Request) {
	s.sessionId(w, r)
	token := loginToken
	if s.fixture.LoginPageWithoutToken {
		token = ""
	}
	render(w, http.StatusOK, loginPage, map[string]any{"Token": token, "Failed": false})
}

func (s *Server) postLogin(w http.ResponseWriter, r *http.Request) {
	id := s.sessionId(w, r)
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("logintoken") != loginToken ||
		r.PostForm.Get("username") != s.fixture.Username ||
		r.PostForm.Get("password") != s.fixture.Password {
		render(w, http.StatusOK, loginPage, map[string]any{"Token": loginToken, "Failed": true})
		return
	}

	s.mutex.Lock()
	s.sessions[id] = true
	s.mutex.Unlock()

	http.Redirect(w, r, "/my/", http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		http.Redirect(w, r, "/login/index.php", http.StatusSeeOther)
		return
	}
	render(w, http.StatusOK, dashboardPage, map[string]any{
		"Sesskey":  s.fixture.Sesskey,
		"InForm":   !s.fixture.OmitSesskey && !s.fixture.SesskeyInScript,
		"InScript": !s.fixture.OmitSesskey && s.fixture.SesskeyInScript,
	})
}

type ajaxCall struct {
	Methodname string `json:"methodname"`
	Args       struct {
		Limit int `json:"limit"`
	} `json:"args"`
}

type directoryCourse struct {
	Id        int64  `json:"id"`
	Fullname  string `json:"fullname"`
	Shortname string `json:"shortname"`
	Visible   bool   `json:"visible"`
}

func writeJson(w http.ResponseWriter, value any) {
	w.Header().Set("content-type", "application/json")
	json.NewEncoder(w).Encode(value)
}

func (s *Server) ajax(w http.ResponseWriter, r *http.Request) {
	if s.fixture.MalformedDirectory {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"unexpected":`))
		return
	}
	if !s.authenticated(r) || r.URL.Query().Get("sesskey") != s.fixture.Sesskey {
		writeJson(w, []map[string]any{{
			"error": true,
			"exception": map[string]any{
				"message":   "Your session has most likely timed out. Please log in again.",
				"errorcode": "invalidsesskey",
			},
		}})
		return
	}

	var calls []ajaxCall
	err := json.NewDecoder(r.Body).Decode(&calls)
	if err != nil || len(calls) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	courses := []directoryCourse{}
	for _, c := range s.fixture.Courses {
		if calls[0].Args.Limit > 0 && len(courses) >= calls[0].Args.Limit {
			break
		}
		courses = append(courses, directoryCourse{
			Id:        c.Id,
			Fullname:  c.Fullname,
			Shortname: strconv.FormatInt(c.Id, 10),
			Visible:   true,
		})
	}
	writeJson(w, []map[string]any{{
		"error": false,
		"data": map[string]any{
			"courses":    courses,
			"nextoffset": len(courses),
		},
	}})
}

func (s *Server) roster(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		http.Redirect(w, r, "/login/index.php", http.StatusSeeOther)
		return
	}

	id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	idx := slices.IndexFunc(s.fixture.Courses, func(c Course) bool { return c.Id == id })
	if idx < 0 {
		render(w, http.StatusOK, rosterPage, map[string]any{"Title": "", "Links": nil, "Duplicate": false})
		return
	}
	course := s.fixture.Courses[idx]

	status := http.StatusOK
	if course.Status != 0 {
		status = course.Status
	}

	links := make([]rosterLink, len(course.Users))
	for i, user := range course.Users {
		href := fmt.Sprintf("/user/view.php?id=%d&course=%d", user, course.Id)
		// the real page mixes absolute and relative links
		if i%2 == 0 {
			href = s.URL + href
		}
		links[i] = rosterLink{Href: href, Name: fmt.Sprintf("user %d", user)}
	}
	render(w, status, rosterPage, map[string]any{
		"Title":     course.Title,
		"Links":     links,
		"Duplicate": s.fixture.DuplicateLinks,
	})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		http.Redirect(w, r, "/login/index.php", http.StatusSeeOther)
		return
	}

	id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	profile, ok := s.fixture.Profiles[id]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if profile.Delay > 0 {
		select {
		case <-time.After(profile.Delay):
		case <-r.Context().Done():
			return
		}
	}
	render(w, http.StatusOK, profilePage, profile)
}
