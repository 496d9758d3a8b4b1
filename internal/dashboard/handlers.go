// Package dashboard serves the tracker's HTML page and JSON API on top of the
// view state controller.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"time"

	"covid_tracker/internal/covid"
	"covid_tracker/internal/upstream"
	"covid_tracker/internal/viewstate"

	"emperror.dev/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// StateController is the part of viewstate.Controller the handlers drive.
type StateController interface {
	Snapshot() (viewstate.ViewState, error)
	SelectCountry(code string) (*viewstate.Pending, error)
	SelectStatistic(stat covid.Statistic) error
	Retry() (*viewstate.Pending, error)
}

// HistoryFetcher 提供图表用的历史数据
type HistoryFetcher interface {
	Historical(ctx context.Context, lastDays int) (covid.Timeline, error)
}

type Handler struct {
	controller StateController
	history    HistoryFetcher
	chartDays  int
	logger     *logrus.Entry
}

func NewHandler(controller StateController, history HistoryFetcher, chartDays int, logger *logrus.Entry) *Handler {
	return &Handler{
		controller: controller,
		history:    history,
		chartDays:  chartDays,
		logger:     logger,
	}
}

func (h *Handler) Routes() http.Handler {
	// 注册路由与中间件
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.handleHealth)
	r.Get("/", h.handlePage)
	r.Post("/select/country", h.handleFormCountry)
	r.Post("/select/statistic", h.handleFormStatistic)
	r.Post("/retry", h.handleFormRetry)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleState)
		r.Get("/countries", h.handleCountries)
		r.Get("/table", h.handleTable)
		r.Get("/map", h.handleMap)
		r.Get("/chart", h.handleChart)
		r.Post("/selection/country", h.handleSelectCountry)
		r.Post("/selection/statistic", h.handleSelectStatistic)
		r.Post("/retry", h.handleRetry)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type optionView struct {
	Name     string
	Code     string
	Selected bool
}

type pageData struct {
	Phase      viewstate.Phase
	Failures   []viewstate.Failure
	Cards      []InfoCard
	Options    []optionView
	Table      []TableRow
	Map        MapView
	ChartTitle string
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}

	var options []optionView
	for _, o := range countryOptions(s) {
		options = append(options, optionView{Name: o.DisplayName, Code: o.Code, Selected: o.Code == s.SelectedCountryCode})
	}
	resp := buildStateResponse(s)
	data := pageData{
		Phase:      resp.Phase,
		Failures:   s.Failures,
		Cards:      resp.Cards,
		Options:    options,
		Table:      buildTable(s.Table),
		Map:        buildMap(s),
		ChartTitle: resp.ChartTitle,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.WithError(err).Error("render dashboard")
	}
}

func (h *Handler) handleFormCountry(w http.ResponseWriter, r *http.Request) {
	p, err := h.controller.SelectCountry(r.PostFormValue("country"))
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	// 失败已记录在状态里，页面会显示错误横幅
	_ = p.Wait(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleFormStatistic(w http.ResponseWriter, r *http.Request) {
	stat, err := covid.ParseStatistic(r.PostFormValue("statistic"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unknown statistic")
		return
	}
	if err := h.controller.SelectStatistic(stat); err != nil {
		h.writeControllerError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleFormRetry(w http.ResponseWriter, r *http.Request) {
	p, err := h.controller.Retry()
	if err != nil && !errors.Is(err, viewstate.ErrNothingToRetry) {
		h.writeControllerError(w, err)
		return
	}
	if p != nil {
		_ = p.Wait(r.Context())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, http.StatusOK)
}

func (h *Handler) handleCountries(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, countryOptions(s))
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, buildTable(s.Table))
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, buildMap(s))
}

type chartResponse struct {
	CasesType covid.Statistic    `json:"casesType"`
	Title     string             `json:"title"`
	Points    []covid.ChartPoint `json:"points"`
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	var stat covid.Statistic
	if raw := r.URL.Query().Get("casesType"); raw != "" {
		parsed, err := covid.ParseStatistic(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "unknown statistic")
			return
		}
		stat = parsed
	} else {
		s, ok := h.snapshot(w)
		if !ok {
			return
		}
		stat = s.SelectedStatistic
	}

	timeline, err := h.history.Historical(r.Context(), h.chartDays)
	if err != nil {
		h.logger.WithError(err).Warn("load historical timeline")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "failed to load history",
			"kind":  string(upstream.KindOf(err)),
		})
		return
	}

	points, err := covid.BuildChartSeries(timeline, stat)
	if err != nil {
		h.logger.WithError(err).Warn("build chart series")
		h.writeError(w, http.StatusBadGateway, "malformed history")
		return
	}
	h.writeJSON(w, http.StatusOK, chartResponse{
		CasesType: stat,
		Title:     "Worldwide " + stat.Title(),
		Points:    points,
	})
}

type selectCountryRequest struct {
	Code string `json:"code"`
}

type selectStatisticRequest struct {
	Statistic string `json:"statistic"`
}

func (h *Handler) handleSelectCountry(w http.ResponseWriter, r *http.Request) {
	var input selectCountryRequest
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.controller.SelectCountry(input.Code)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.respondPending(w, r, p)
}

func (h *Handler) handleSelectStatistic(w http.ResponseWriter, r *http.Request) {
	var input selectStatisticRequest
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stat, err := covid.ParseStatistic(input.Statistic)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unknown statistic")
		return
	}
	if err := h.controller.SelectStatistic(stat); err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	p, err := h.controller.Retry()
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.respondPending(w, r, p)
}

// respondPending 默认立即返回 202；带 wait=true 时等结果落地后再返回
func (h *Handler) respondPending(w http.ResponseWriter, r *http.Request, p *viewstate.Pending) {
	if r.URL.Query().Get("wait") != "true" {
		h.writeState(w, http.StatusAccepted)
		return
	}

	status := http.StatusOK
	if err := p.Wait(r.Context()); err != nil {
		if r.Context().Err() != nil {
			h.writeError(w, http.StatusGatewayTimeout, "request still pending")
			return
		}
		status = http.StatusBadGateway
	}
	h.writeState(w, status)
}

func (h *Handler) snapshot(w http.ResponseWriter) (viewstate.ViewState, bool) {
	s, err := h.controller.Snapshot()
	if err != nil {
		h.writeControllerError(w, err)
		return viewstate.ViewState{}, false
	}
	return s, true
}

func (h *Handler) writeState(w http.ResponseWriter, status int) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, status, buildStateResponse(s))
}

func (h *Handler) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, viewstate.ErrEmptyCode):
		h.writeError(w, http.StatusBadRequest, "country code is required")
	case errors.Is(err, viewstate.ErrNothingToRetry):
		h.writeError(w, http.StatusConflict, "nothing to retry")
	case errors.Is(err, viewstate.ErrClosed):
		h.writeError(w, http.StatusServiceUnavailable, "shutting down")
	default:
		h.logger.WithError(err).Error("controller error")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	// 统一 JSON 响应输出
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("json encode error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
