package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	_ "narsus/docs"
	"narsus/internal/metrics"
	"narsus/internal/model"
	"narsus/internal/service"
	"narsus/internal/transport/rest/handler"
	"narsus/internal/transport/rest/middleware"
	"narsus/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	CourseService   *service.CourseService
	QuestionService *service.QuestionService
	QCAService      *service.QCAService
	SurveyService   *service.SurveyService
	AttemptService  *service.AttemptService
	WSHub           *ws.Hub
	Metrics         *metrics.Metrics
	// RateLimiter guards register and login. A nil limiter allows 20 per minute.
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	authHandler := handler.NewAuthHandler(c.AuthService, log)
	courseHandler := handler.NewCourseHandler(c.CourseService, log)
	questionHandler := handler.NewQuestionHandler(c.QuestionService, log)
	qcaHandler := handler.NewQCAHandler(c.QCAService, log)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService, log)
	attemptHandler := handler.NewAttemptHandler(c.AttemptService, log)

	authMW := middleware.NewAuthMiddleware(c.AuthService)
	teacherOnly := middleware.RequireRole(model.RoleTeacher)
	limiter := c.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(20, time.Minute)
	}

	var observer middleware.RequestObserver
	if c.Metrics != nil {
		observer = c.Metrics
	}
	r.Use(middleware.RequestLogger(log, observer))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}
	r.HandleFunc("/swagger/doc.json", swaggerDoc).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	public := v1.NewRoute().Subrouter()
	public.Use(limiter.Limit)
	public.HandleFunc("/users/register", authHandler.Register).Methods("POST")
	public.HandleFunc("/users/login", authHandler.Login).Methods("POST")

	// WebSocket routes (token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.SurveyService, log)
		v1.Handle("/ws/surveys/{id}/submissions",
			authMW.AuthenticateQuery(teacherOnly(http.HandlerFunc(wsHandler.SubmissionsWS)))).Methods("GET")
	}

	// Any authenticated user
	authed := v1.NewRoute().Subrouter()
	authed.Use(authMW.Authenticate)

	authed.HandleFunc("/users/me", authHandler.Me).Methods("GET")
	authed.HandleFunc("/users/logout", authHandler.Logout).Methods("POST")
	authed.HandleFunc("/courses", courseHandler.List).Methods("GET")
	authed.HandleFunc("/courses/{id}", courseHandler.Get).Methods("GET")
	authed.HandleFunc("/surveys", surveyHandler.List).Methods("GET")
	authed.HandleFunc("/surveys/{id}", surveyHandler.Get).Methods("GET")
	authed.HandleFunc("/survey-attempts/start", attemptHandler.Start).Methods("POST")
	authed.HandleFunc("/survey-attempts/my", attemptHandler.ListMine).Methods("GET")
	authed.HandleFunc("/survey-attempts/{id}/answers", attemptHandler.SaveAnswers).Methods("POST")
	authed.HandleFunc("/survey-attempts/{id}/submit", attemptHandler.Submit).Methods("POST")
	authed.HandleFunc("/survey-attempts/{id}/results", attemptHandler.Results).Methods("GET")

	// Teacher routes
	teacher := v1.NewRoute().Subrouter()
	teacher.Use(authMW.Authenticate, teacherOnly)

	teacher.HandleFunc("/courses", courseHandler.Create).Methods("POST")
	teacher.HandleFunc("/courses/{id}", courseHandler.Update).Methods("PUT")
	teacher.HandleFunc("/courses/{id}", courseHandler.Delete).Methods("DELETE")

	teacher.HandleFunc("/questions", questionHandler.Create).Methods("POST")
	teacher.HandleFunc("/questions", questionHandler.List).Methods("GET")
	teacher.HandleFunc("/questions/{id}", questionHandler.Get).Methods("GET")
	teacher.HandleFunc("/questions/{id}", questionHandler.Update).Methods("PUT")
	teacher.HandleFunc("/questions/{id}", questionHandler.Delete).Methods("DELETE")

	teacher.HandleFunc("/question-course-associations", qcaHandler.Create).Methods("POST")
	teacher.HandleFunc("/question-course-associations", qcaHandler.List).Methods("GET")
	teacher.HandleFunc("/question-course-associations/{id}", qcaHandler.Get).Methods("GET")
	teacher.HandleFunc("/question-course-associations/{id}", qcaHandler.Update).Methods("PUT")
	teacher.HandleFunc("/question-course-associations/{id}", qcaHandler.Delete).Methods("DELETE")

	teacher.HandleFunc("/surveys", surveyHandler.Create).Methods("POST")
	teacher.HandleFunc("/surveys/{id}", surveyHandler.Update).Methods("PUT")
	teacher.HandleFunc("/surveys/{id}", surveyHandler.Delete).Methods("DELETE")
	teacher.HandleFunc("/surveys/{id}/publish", surveyHandler.Publish).Methods("POST")
	teacher.HandleFunc("/surveys/{id}/unpublish", surveyHandler.Unpublish).Methods("POST")

	teacher.HandleFunc("/survey-attempts/by-survey/{survey_id}", attemptHandler.ListBySurvey).Methods("GET")

	// CORS wraps the router so preflight requests reach it for every path
	return middleware.CORS(c.AllowedOrigins)(r)
}

func swaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"api documentation unavailable"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}
