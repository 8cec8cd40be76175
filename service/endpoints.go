package service

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/guregu/null/v6"

	"mc.forecast/charts"
	"mc.forecast/core"
	m "mc.forecast/models"
)

const (
	DefaultAddr = ":8080"

	maxBodyBytes = 1 << 20
)

func GetHttpServer(sc *ServiceContext) *http.Server {
	addr := sc.Settings.Server.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	return &http.Server{
		Addr:           addr,
		Handler:        NewRouter(sc),
		ReadTimeout:    sc.Settings.Server.ReadTimeout,
		WriteTimeout:   sc.Settings.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func NewRouter(sc *ServiceContext) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   sc.Settings.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	r.Method(http.MethodGet, "/metrics", sc.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) { ping(w, r, sc) })

		r.Route("/forecasts", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Post("/", func(w http.ResponseWriter, r *http.Request) { postForecast(w, r, sc) })
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) { getForecast(w, r, sc) })
		})

		r.Route("/coins/{coin}", func(r chi.Router) {
			r.Get("/chart.png", func(w http.ResponseWriter, r *http.Request) { getChart(w, r, sc) })
			r.Post("/sync", func(w http.ResponseWriter, r *http.Request) { postSync(w, r, sc) })
		})
	})

	return r
}

func ping(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	res := map[string]string{"message": "pong"}
	if sc.Store != nil {
		res["database"] = "ok"
		if err := sc.Store.Ping(r.Context()); err != nil {
			res["database"] = err.Error()
		}
	}
	render.JSON(w, r, res)
}

func postForecast(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	var req m.ForecastRequest
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	res, err := sc.WithContext(r.Context()).RunForecast(req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, m.GetServiceResponseOk(res))
}

func getForecast(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	res, err := sc.WithContext(r.Context()).GetForecast(id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, m.GetServiceResponseOk(res))
}

// getChart runs a forecast from query parameters (simulations, steps, seed) and answers with the png
func getChart(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	req, err := chartRequest(r, sc)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := sc.WithContext(r.Context()).RunForecast(req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	img, err := charts.RenderForecastChart(req.Coin, res.Result)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func chartRequest(r *http.Request, sc *ServiceContext) (m.ForecastRequest, error) {
	req := m.ForecastRequest{
		Coin:        chi.URLParam(r, "coin"),
		Simulations: sc.Settings.Simulation.Simulations,
		Steps:       sc.Settings.Simulation.Steps,
	}

	query := r.URL.Query()
	for name, target := range map[string]*int{"simulations": &req.Simulations, "steps": &req.Steps} {
		if v := query.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return req, fmt.Errorf("%w: %s must be an integer", ErrInvalidRequest, name)
			}
			*target = n
		}
	}

	if req.Steps < 2 {
		return req, fmt.Errorf("%w: %w: a chart needs at least 2 steps, got %d", ErrInvalidRequest, core.ErrConfiguration, req.Steps)
	}

	if v := query.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: seed must be an integer", ErrInvalidRequest)
		}
		req.Seed = null.IntFrom(seed)
	}

	return req, nil
}

func postSync(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	coin := chi.URLParam(r, "coin")
	inserted, err := sc.WithContext(r.Context()).SyncCoinPriceHistory(coin)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{"coin": coin, "inserted": inserted})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, statusFromError(err))
	render.JSON(w, r, m.GetServiceResponseError(err))
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, core.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRecentlyRefreshed):
		return http.StatusConflict
	case errors.Is(err, ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNumeric), errors.Is(err, core.ErrData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
