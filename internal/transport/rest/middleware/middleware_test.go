package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"narsus/internal/model"
)

type stubTokens map[string]*model.Claims

func (s stubTokens) ValidateToken(token string) (*model.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

type observation struct {
	method, route, status string
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) ObserveRequest(method, route, status string, _ time.Duration) {
	o.seen = append(o.seen, observation{method, route, status})
}

func TestAuthenticate(t *testing.T) {
	userID := primitive.NewObjectID()
	tokens := stubTokens{
		"good":   {UserID: userID.Hex(), Role: model.RoleTeacher},
		"bad-id": {UserID: "not-hex", Role: model.RoleTeacher},
	}
	mw := NewAuthMiddleware(tokens)

	var gotID primitive.ObjectID
	var gotRole model.Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetUserID(r.Context())
		gotRole = GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"malformed user id", "Bearer bad-id", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotRole = primitive.NilObjectID, ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.Authenticate(next).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status=%d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && (gotID != userID || gotRole != model.RoleTeacher) {
				t.Fatalf("context=(%s,%s)", gotID.Hex(), gotRole)
			}
		})
	}
}

func TestAuthenticateQuery(t *testing.T) {
	mw := NewAuthMiddleware(stubTokens{"good": {UserID: primitive.NewObjectID().Hex(), Role: model.RoleTeacher}})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for target, want := range map[string]int{
		"/ws?token=good": http.StatusOK,
		"/ws?token=bad":  http.StatusUnauthorized,
		"/ws":            http.StatusUnauthorized,
	} {
		rec := httptest.NewRecorder()
		mw.AuthenticateQuery(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != want {
			t.Fatalf("%s: status=%d, want %d", target, rec.Code, want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	studentID := primitive.NewObjectID().Hex()
	teacherID := primitive.NewObjectID().Hex()
	mw := NewAuthMiddleware(stubTokens{
		"student": {UserID: studentID, Role: model.RoleStudent},
		"teacher": {UserID: teacherID, Role: model.RoleTeacher},
	})
	h := mw.Authenticate(RequireRole(model.RoleTeacher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	for token, want := range map[string]int{"student": http.StatusForbidden, "teacher": http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodPost, "/courses", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: status=%d, want %d", token, rec.Code, want)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	obs := &recordingObserver{}
	r := mux.NewRouter()
	r.Use(RequestLogger(zap.NewNop(), obs))

	var seenID string
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}).Methods("GET")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	header := rec.Header().Get("X-Request-ID")
	if header == "" || header != seenID {
		t.Fatalf("request id header=%q, context=%q", header, seenID)
	}
	want := observation{"GET", "/items/{id}", "418"}
	if len(obs.seen) != 1 || obs.seen[0] != want {
		t.Fatalf("observed=%v, want %v", obs.seen, want)
	}

	req := httptest.NewRequest(http.MethodGet, "/items/7", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id=%q, want caller supplied", got)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Hour)
	h := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if got := call("10.0.0.1"); got != http.StatusOK {
			t.Fatalf("request %d: status=%d", i, got)
		}
	}
	if got := call("10.0.0.1"); got != http.StatusTooManyRequests {
		t.Fatalf("over limit: status=%d, want 429", got)
	}
	if got := call("10.0.0.2"); got != http.StatusOK {
		t.Fatalf("other client: status=%d", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("clientIP=%q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("clientIP=%q, want first forwarded", got)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/surveys", nil)
		req.Header.Set("Origin", "http://app.test")
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status=%d, want 204", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("allow origin=%q", got)
		}
	})

	t.Run("whitelisted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://app.test")
		rec := httptest.NewRecorder()
		CORS([]string{"http://app.test"})(next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.test" {
			t.Fatalf("allow origin=%q", got)
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Fatal("credentials not allowed for whitelisted origin")
		}
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.test")
		rec := httptest.NewRecorder()
		CORS([]string{"http://app.test"})(next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("allow origin=%q, want none", got)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
	})
}
