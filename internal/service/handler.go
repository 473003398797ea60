package service

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
)

const ServiceName = "elms.v1.ExtractorService"

const (
	LoginProcedure       = "/" + ServiceName + "/Login"
	ListCoursesProcedure = "/" + ServiceName + "/ListCourses"
	ExtractProcedure     = "/" + ServiceName + "/Extract"
	ExtractAllProcedure  = "/" + ServiceName + "/ExtractAll"
	LogoutProcedure      = "/" + ServiceName + "/Logout"
)

// NewHandler builds the connect handler of every procedure, it returns the
// path to mount it on.
func NewHandler(s Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(newSessionInterceptor(s.cache)),
	}, opts...)

	login := connect.NewUnaryHandler(LoginProcedure, s.Login, opts...)
	listCourses := connect.NewUnaryHandler(ListCoursesProcedure, s.ListCourses, opts...)
	extract := connect.NewUnaryHandler(ExtractProcedure, s.Extract, opts...)
	extractAll := connect.NewUnaryHandler(ExtractAllProcedure, s.ExtractAll, opts...)
	logout := connect.NewUnaryHandler(LogoutProcedure, s.Logout, opts...)

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LoginProcedure:
			login.ServeHTTP(w, r)
		case ListCoursesProcedure:
			listCourses.ServeHTTP(w, r)
		case ExtractProcedure:
			extract.ServeHTTP(w, r)
		case ExtractAllProcedure:
			extractAll.ServeHTTP(w, r)
		case LogoutProcedure:
			logout.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// HealthHandler answers GET requests with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}

// NewMux mounts the service and the health check.
func NewMux(s Service, opts ...connect.HandlerOption) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(NewHandler(s, opts...))
	mux.Handle("/healthz", HealthHandler())
	return mux
}

// Client calls the service, the server must be reachable by the given
// http client.
type Client struct {
	login       *connect.Client[LoginRequest, LoginResponse]
	listCourses *connect.Client[ListCoursesRequest, ListCoursesResponse]
	extract     *connect.Client[ExtractRequest, ExtractResponse]
	extractAll  *connect.Client[ExtractAllRequest, ExtractAllResponse]
	logout      *connect.Client[LogoutRequest, LogoutResponse]
}

func NewClient(httpClient connect.HTTPClient, baseUrl string, opts ...connect.ClientOption) Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return Client{
		login:       connect.NewClient[LoginRequest, LoginResponse](httpClient, baseUrl+LoginProcedure, opts...),
		listCourses: connect.NewClient[ListCoursesRequest, ListCoursesResponse](httpClient, baseUrl+ListCoursesProcedure, opts...),
		extract:     connect.NewClient[ExtractRequest, ExtractResponse](httpClient, baseUrl+ExtractProcedure, opts...),
		extractAll:  connect.NewClient[ExtractAllRequest, ExtractAllResponse](httpClient, baseUrl+ExtractAllProcedure, opts...),
		logout:      connect.NewClient[LogoutRequest, LogoutResponse](httpClient, baseUrl+LogoutProcedure, opts...),
	}
}

func (c Client) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c Client) ListCourses(ctx context.Context, req *connect.Request[ListCoursesRequest]) (*connect.Response[ListCoursesResponse], error) {
	return c.listCourses.CallUnary(ctx, req)
}

func (c Client) Extract(ctx context.Context, req *connect.Request[ExtractRequest]) (*connect.Response[ExtractResponse], error) {
	return c.extract.CallUnary(ctx, req)
}

func (c Client) ExtractAll(ctx context.Context, req *connect.Request[ExtractAllRequest]) (*connect.Response[ExtractAllResponse], error) {
	return c.extractAll.CallUnary(ctx, req)
}

func (c Client) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}
