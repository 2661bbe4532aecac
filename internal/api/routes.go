// 包 api：集中注册 HTTP API 路由，作为位置源与渲染层访问世界状态的边界
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"geocoin/internal/cache"
	"geocoin/internal/game"
	"geocoin/internal/geoip"
	"geocoin/internal/grid"
	"geocoin/internal/logger"
	"geocoin/internal/middleware"
	"geocoin/internal/world"
)

type transferResult struct {
	Token game.TokenView `json:"token"`
	State game.StateView `json:"state"`
}

type errorBody struct {
	Error string `json:"error"`
}

// BuildRoutes：构建 API 路由，由主入口挂载到 API_BASE 前缀
func BuildRoutes(svc *game.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ClientIP)

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Snapshot())
	})
	r.Get("/cells", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Cells())
	})
	r.Post("/move", func(w http.ResponseWriter, r *http.Request) {
		p, ok := decodePoint(w, r)
		if !ok {
			return
		}
		v, err := svc.MoveTo(r.Context(), p)
		respond(w, r, v, err)
	})
	r.Post("/teleport", func(w http.ResponseWriter, r *http.Request) {
		p, ok := decodePoint(w, r)
		if !ok {
			return
		}
		v, err := svc.Teleport(r.Context(), p)
		respond(w, r, v, err)
	})
	r.Post("/step/{dir}", func(w http.ResponseWriter, r *http.Request) {
		d, ok := grid.ParseDirection(chi.URLParam(r, "dir"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown direction"})
			return
		}
		v, err := svc.Step(r.Context(), d)
		respond(w, r, v, err)
	})
	r.Post("/locate", func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.Locate(r.Context(), middleware.IPFromContext(r.Context()))
		respond(w, r, v, err)
	})
	r.Post("/caches/{i}/{j}/collect", func(w http.ResponseWriter, r *http.Request) {
		idx, ok := cellParam(w, r)
		if !ok {
			return
		}
		t, err := svc.Collect(r.Context(), idx)
		respondTransfer(w, r, svc, t, err)
	})
	r.Post("/caches/{i}/{j}/deposit", func(w http.ResponseWriter, r *http.Request) {
		idx, ok := cellParam(w, r)
		if !ok {
			return
		}
		t, err := svc.Deposit(r.Context(), idx)
		respondTransfer(w, r, svc, t, err)
	})
	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.Reset(r.Context())
		respond(w, r, v, err)
	})
	return r
}

func decodePoint(w http.ResponseWriter, r *http.Request) (grid.GeoPoint, bool) {
	var p grid.GeoPoint
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body must be {\"lat\":..,\"long\":..}"})
		return p, false
	}
	return p, true
}

func cellParam(w http.ResponseWriter, r *http.Request) (grid.CellIndex, bool) {
	i, err1 := strconv.Atoi(chi.URLParam(r, "i"))
	j, err2 := strconv.Atoi(chi.URLParam(r, "j"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "cell indices must be integers"})
		return grid.CellIndex{}, false
	}
	return grid.CellIndex{I: i, J: j}, true
}

func respond(w http.ResponseWriter, r *http.Request, v game.StateView, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func respondTransfer(w http.ResponseWriter, r *http.Request, svc *game.Service, t cache.Token, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transferResult{
		Token: game.TokenView{Serial: t.Serial, Origin: t.Origin},
		State: svc.Snapshot(),
	})
}

// statusFor：错误到 HTTP 状态码的映射
func statusFor(err error) int {
	switch {
	case errors.Is(err, cache.ErrEmptyCache):
		return http.StatusConflict
	case errors.Is(err, world.ErrNoCache), errors.Is(err, geoip.ErrNoLocation):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNoLocator), errors.Is(err, geoip.ErrDisabled):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.L().Error("api_error", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
