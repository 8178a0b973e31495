// routes/build_handlers.go
package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/LilVoxy/fabric_activity_etl/ETL/load"
	"github.com/LilVoxy/fabric_activity_etl/ETL/runner"
)

const maxRunsLimit = 200

type handlers struct {
	deps Dependencies
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// BuildAccepted ответ на запуск сборки
type BuildAccepted struct {
	Status      string `json:"status"`
	FullRefresh bool   `json:"full_refresh"`
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.deps.Logger.Error("Ошибка при кодировании JSON: %v", err)
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

// GetSchema возвращает DDL звезды; format=json возвращает описание колонок
func (h *handlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	tables := load.DescribeSchema()
	if r.URL.Query().Get("format") == "json" {
		h.writeJSON(w, http.StatusOK, tables)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(load.RenderDDL(tables)))
}

// StartBuild запускает сборку в фоне. full_refresh=true - полная перестройка.
func (h *handlers) StartBuild(w http.ResponseWriter, r *http.Request) {
	fullRefresh := false
	if v := r.URL.Query().Get("full_refresh"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Неверное значение full_refresh")
			return
		}
		fullRefresh = parsed
	}

	err := h.deps.Builds.StartBuild(h.deps.BuildContext, runner.RunOptions{FullRefresh: fullRefresh})
	if errors.Is(err, runner.ErrBuildInProgress) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.deps.Logger.Error("Ошибка запуска сборки: %v", err)
		h.writeError(w, http.StatusInternalServerError, "Ошибка запуска сборки")
		return
	}

	h.deps.Logger.Info("Сборка запущена через API (full_refresh=%v)", fullRefresh)
	h.writeJSON(w, http.StatusAccepted, BuildAccepted{Status: "accepted", FullRefresh: fullRefresh})
}

// GetLastBuild возвращает отчёт последней сборки процесса,
// а если сборок ещё не было, последний успешный запуск из журнала
func (h *handlers) GetLastBuild(w http.ResponseWriter, r *http.Request) {
	if report := h.deps.Builds.LastReport(); report != nil {
		h.writeJSON(w, http.StatusOK, report)
		return
	}

	repo := h.deps.Builds.RunLog()
	if repo == nil {
		h.writeError(w, http.StatusNotFound, "Сборок ещё не было")
		return
	}
	last, err := repo.GetLastSuccessfulRun()
	if err != nil {
		h.deps.Logger.Error("Ошибка при чтении журнала сборок: %v", err)
		h.writeError(w, http.StatusInternalServerError, "Ошибка при чтении журнала сборок")
		return
	}
	if last == nil {
		h.writeError(w, http.StatusNotFound, "Сборок ещё не было")
		return
	}
	h.writeJSON(w, http.StatusOK, last)
}

// GetRuns возвращает последние запуски из журнала
func (h *handlers) GetRuns(w http.ResponseWriter, r *http.Request) {
	repo := h.deps.Builds.RunLog()
	if repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Журнал сборок отключён")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "Неверный формат limit")
			return
		}
		limit = min(parsed, maxRunsLimit)
	}

	runs, err := repo.GetRecentRuns(limit)
	if err != nil {
		h.deps.Logger.Error("Ошибка при чтении журнала сборок: %v", err)
		h.writeError(w, http.StatusInternalServerError, "Ошибка при чтении журнала сборок")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRunState возвращает сводку по журналу сборок
func (h *handlers) GetRunState(w http.ResponseWriter, r *http.Request) {
	repo := h.deps.Builds.RunLog()
	if repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Журнал сборок отключён")
		return
	}
	state, err := repo.GetStateMonitor()
	if err != nil {
		h.deps.Logger.Error("Ошибка при чтении журнала сборок: %v", err)
		h.writeError(w, http.StatusInternalServerError, "Ошибка при чтении журнала сборок")
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}
