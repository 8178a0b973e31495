// routes/api_routes.go
package routes

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/runner"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// BuildService - операции сборки, доступные через API
type BuildService interface {
	StartBuild(ctx context.Context, opts runner.RunOptions) error
	LastReport() *models.BuildReport
	RunLog() models.BuildRunRepository
}

// Dependencies зависимости административного API
type Dependencies struct {
	Builds  BuildService
	Metrics http.Handler
	Events  http.HandlerFunc
	Logger  *utils.ETLLogger

	// BuildContext - контекст фоновых сборок, запущенных через API
	BuildContext context.Context
}

// SetupRoutes настраивает все маршруты API и WebSocket
func SetupRoutes(router *mux.Router, deps Dependencies) {
	router.Use(CORSMiddleware)

	h := &handlers{deps: deps}
	if h.deps.BuildContext == nil {
		h.deps.BuildContext = context.Background()
	}
	if h.deps.Logger == nil {
		h.deps.Logger = utils.NewNopLogger()
	}

	// Схема звезды
	router.HandleFunc("/api/schema", h.GetSchema).Methods("GET", "OPTIONS")

	// Сборки
	router.HandleFunc("/api/builds", h.StartBuild).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/builds/last", h.GetLastBuild).Methods("GET", "OPTIONS")

	// Журнал сборок
	router.HandleFunc("/api/runs", h.GetRuns).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/runs/state", h.GetRunState).Methods("GET", "OPTIONS")

	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics).Methods("GET")
	}
	if deps.Events != nil {
		router.HandleFunc("/ws/builds", deps.Events)
	}
}

// CORSMiddleware разрешает запросы с любого источника
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
