package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/VisitPulse/internal/catalog"
	"github.com/soaringjerry/VisitPulse/internal/logger"
	"github.com/soaringjerry/VisitPulse/internal/middleware"
	"github.com/soaringjerry/VisitPulse/internal/models"
	"github.com/soaringjerry/VisitPulse/internal/services"
	"github.com/soaringjerry/VisitPulse/internal/utils"
	"github.com/soaringjerry/VisitPulse/internal/wizard"
)

type BuildInfo struct {
	Commit    string
	BuildTime string
}

type Router struct {
	responses *services.ResponseService
	sessions  *services.SessionService
	admin     *services.AdminService
	dashboard *services.DashboardService
	catalog   *catalog.Catalog
	auth      *middleware.Authenticator
	log       *logger.Logger
	info      BuildInfo
}

type Deps struct {
	Responses *services.ResponseService
	Sessions  *services.SessionService
	Admin     *services.AdminService
	Dashboard *services.DashboardService
	Auth      *middleware.Authenticator
	Log       *logger.Logger
	Info      BuildInfo
}

func NewRouter(d Deps) *Router {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Router{
		responses: d.Responses,
		sessions:  d.Sessions,
		admin:     d.Admin,
		dashboard: d.Dashboard,
		catalog:   d.Responses.Catalog(),
		auth:      d.Auth,
		log:       log,
		info:      d.Info,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/survey-responses", rt.handleCreateResponse)
	mux.HandleFunc("GET /api/survey-responses", rt.handleListResponses)
	mux.HandleFunc("GET /api/survey-responses/{id}", rt.handleGetResponse)
	mux.HandleFunc("PUT /api/survey-responses/{id}", rt.handleUpdateResponse)
	mux.HandleFunc("POST /api/survey-responses/reset", rt.handleReset)
	mux.HandleFunc("POST /api/checkout/lookup", rt.handleCheckoutLookup)
	mux.HandleFunc("GET /api/catalog", rt.handleCatalog)

	mux.HandleFunc("POST /api/sessions", rt.handleStartSession)
	mux.HandleFunc("GET /api/sessions/{id}", rt.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/choose", rt.handleChooseMode)
	mux.HandleFunc("POST /api/sessions/{id}/answers", rt.handleAnswers)
	mux.HandleFunc("POST /api/sessions/{id}/next", rt.handleNext)
	mux.HandleFunc("POST /api/sessions/{id}/previous", rt.handlePrevious)
	mux.HandleFunc("POST /api/sessions/{id}/complete", rt.handleComplete)

	mux.HandleFunc("POST /api/admin/login", rt.handleAdminLogin)
	mux.Handle("GET /api/dashboard/summary", middleware.RequireAdmin(http.HandlerFunc(rt.handleSummary)))
	mux.Handle("GET /api/dashboard/export", middleware.RequireAdmin(http.HandlerFunc(rt.handleExport)))

	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.HandleFunc("GET /version", rt.handleVersion)
}

// Handler returns the full middleware stack around the API. frontend, when
// non-nil, serves every path the API does not claim.
func (rt *Router) Handler(frontend http.Handler) http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	if frontend != nil {
		mux.Handle("/", frontend)
	}
	var h http.Handler = mux
	h = rt.auth.WithAuth(h)
	h = middleware.RequestLogger(rt.log)(h)
	h = middleware.LocaleMiddleware(h)
	h = middleware.CORS(h)
	h = middleware.SecureHeaders(h)
	return middleware.NoStore(h)
}

// POST /api/survey-responses: 201 when a row was created, 200 on a merge.
func (rt *Router) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	var sub services.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	res, err := rt.responses.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res.Response)
}

// GET /api/survey-responses?phase=checked_in|checkout_only|complete
func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.responses.List(r.Context(), models.Phase(r.URL.Query().Get("phase")))
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (rt *Router) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	row, err := rt.responses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// PUT /api/survey-responses/{id}: partial update, present fields overwrite.
func (rt *Router) handleUpdateResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	var patch services.Submission
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	row, err := rt.responses.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// POST /api/survey-responses/reset { code }
func (rt *Router) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	n, err := rt.admin.Reset(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	rt.log.Warn("survey responses reset", "deleted", n)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// POST /api/checkout/lookup { name }
func (rt *Router) handleCheckoutLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	d, err := rt.responses.LookupCheckout(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (rt *Router) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.catalog)
}

// POST /api/sessions { mode? }
func (rt *Router) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode wizard.Mode `json:"mode"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, rt.log, err)
			return
		}
	}
	st, err := rt.sessions.Start(req.Mode)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (rt *Router) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, err := rt.sessions.Get(r.PathValue("id"))
	rt.writeSession(w, r, st, err)
}

func (rt *Router) handleChooseMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode wizard.Mode `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	st, err := rt.sessions.Choose(r.PathValue("id"), req.Mode)
	rt.writeSession(w, r, st, err)
}

func (rt *Router) handleAnswers(w http.ResponseWriter, r *http.Request) {
	var in wizard.Answers
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	st, err := rt.sessions.Answer(r.PathValue("id"), in)
	rt.writeSession(w, r, st, err)
}

func (rt *Router) handleNext(w http.ResponseWriter, r *http.Request) {
	st, err := rt.sessions.Next(r.Context(), r.PathValue("id"))
	rt.writeSession(w, r, st, err)
}

func (rt *Router) handlePrevious(w http.ResponseWriter, r *http.Request) {
	st, err := rt.sessions.Previous(r.PathValue("id"))
	rt.writeSession(w, r, st, err)
}

func (rt *Router) handleComplete(w http.ResponseWriter, r *http.Request) {
	st, err := rt.sessions.Complete(r.Context(), r.PathValue("id"))
	rt.writeSession(w, r, st, err)
}

func (rt *Router) writeSession(w http.ResponseWriter, r *http.Request, st *services.SessionState, err error) {
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /api/admin/login { code } -> { token, expiresAt }
func (rt *Router) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	res, err := rt.admin.Login(req.Code)
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rt *Router) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := rt.dashboard.Summary(r.Context())
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GET /api/dashboard/export?format=csv
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" && f != "csv" {
		writeError(w, r, rt.log, services.NewValidationError(map[string]string{"format": "oneof"}))
		return
	}
	b, err := rt.dashboard.ExportCSV(r.Context())
	if err != nil {
		writeError(w, r, rt.log, err)
		return
	}
	name := fmt.Sprintf("visitpulse-responses-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(b)
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "VisitPulse API",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"commit":     rt.info.Commit,
		"build_time": rt.info.BuildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commit":     rt.info.Commit,
		"build_time": rt.info.BuildTime,
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewValidationError(map[string]string{"id": "numeric"})
	}
	return id, nil
}
