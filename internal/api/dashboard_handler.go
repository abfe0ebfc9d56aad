package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"pgdash/internal/config"
	"pgdash/internal/core"
	"pgdash/internal/logger"
	"pgdash/internal/service"
)

// maxRedirectURLLength is the ceiling for the redirect-after-post URL. Above
// it the response renders results directly and drops the save affordance,
// since an idempotent re-GET is no longer guaranteed.
const maxRedirectURLLength = 1800

var exportFieldRegex = regexp.MustCompile(`^export_(csv|tsv)_(\d+)$`)

type DashboardHandler struct {
	dashRepo  core.DashboardRepository
	userRepo  core.UserRepository
	auditRepo core.AuditRepository
	authSvc   *service.AuthService
	signer    *service.Signer
	executor  *service.QueryExecutor
	exporter  *service.ExportStreamer
	widgets   *service.WidgetRegistry
	store     *sessions.CookieStore
	templates *template.Template
	cfg       *config.Config
}

func NewDashboardHandler(
	dashRepo core.DashboardRepository,
	userRepo core.UserRepository,
	auditRepo core.AuditRepository,
	authSvc *service.AuthService,
	signer *service.Signer,
	executor *service.QueryExecutor,
	exporter *service.ExportStreamer,
	widgets *service.WidgetRegistry,
	store *sessions.CookieStore,
	templates *template.Template,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{
		dashRepo:  dashRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		authSvc:   authSvc,
		signer:    signer,
		executor:  executor,
		exporter:  exporter,
		widgets:   widgets,
		store:     store,
		templates: templates,
		cfg:       cfg,
	}
}

func (h *DashboardHandler) Routes(r chi.Router) {
	r.Get("/dashboard", h.Index)
	r.Post("/dashboard", h.Submit)
	r.Get("/dashboard/{slug}/", h.Show)
	r.Get("/dashboard/{slug}", h.Show)
}

// queryInput is one SQL text heading into the execution pipeline, with its
// signature status and any saved-query presentation metadata.
type queryInput struct {
	SQL              string
	Verified         bool
	Title            string
	TemplateOverride string
	Defaults         map[string]string
}

// Index renders the ad-hoc query page: repeated sql query-string values are
// signed tokens, remaining key/value pairs feed parameter binding.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	p := h.principal(r)
	if !h.requireExecute(w, r, p) {
		return
	}

	var inputs []queryInput
	for _, token := range r.URL.Query()["sql"] {
		text, valid := h.signer.Unsign(token)
		inputs = append(inputs, queryInput{SQL: text, Verified: valid})
	}

	w.Header().Set("Cache-Control", "private")
	h.renderPage(w, r, p, inputs, nil, pageOptions{
		ShowEditor:    true,
		SaveAllowed:   len(inputs) > 0,
		ExportAllowed: h.cfg.EnableFullExport && len(inputs) > 0,
		ListVisible:   true,
	})
}

// Submit handles raw SQL form posts plus the export and save branches.
func (h *DashboardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p := h.principal(r)
	if !h.requireExecute(w, r, p) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	var raws []string
	for _, s := range r.PostForm["sql"] {
		if s = strings.TrimSpace(s); s != "" {
			raws = append(raws, s)
		}
	}

	// Export branch: a single export_<format>_<index> field switches the
	// whole response over to the streamer.
	for key := range r.PostForm {
		m := exportFieldRegex.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[2])
		h.export(w, r, p, raws, idx, service.ExportFormat(m[1]))
		return
	}

	if r.PostForm.Get("_save-slug") != "" {
		h.save(w, r, p, raws)
		return
	}

	// Redirect-after-post with signed tokens, unless the URL would be too
	// long to round-trip safely.
	values := url.Values{}
	for _, raw := range raws {
		values.Add("sql", h.signer.Sign(raw))
	}
	h.copyParameterValues(raws, r.PostForm, values)
	redirectURL := "/dashboard?" + values.Encode()
	if len(redirectURL) <= maxRedirectURLLength {
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}

	var inputs []queryInput
	for _, raw := range raws {
		inputs = append(inputs, queryInput{SQL: raw, Verified: true})
	}
	w.Header().Set("Cache-Control", "private")
	h.renderPage(w, r, p, inputs, nil, pageOptions{
		ShowEditor:    true,
		SaveAllowed:   false, // re-GET of this response is not possible
		ExportAllowed: h.cfg.EnableFullExport,
		ListVisible:   true,
	})
}

// Show renders a saved dashboard's fixed query set, policy-gated.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	d, err := h.dashRepo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	p := h.principal(r)
	decision := core.ViewDecision(p, d)
	if !decision.Allowed {
		if !p.Authenticated {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if decision.CachePrivate {
		w.Header().Set("Cache-Control", "private")
	}
	if d.ViewPolicy == core.ViewUnlisted {
		w.Header().Set("X-Robots-Tag", "noindex")
	}

	var inputs []queryInput
	for _, q := range d.Queries {
		inputs = append(inputs, queryInput{
			SQL:              q.SQL,
			Verified:         true,
			Title:            q.Title,
			TemplateOverride: q.TemplateOverride,
			Defaults:         settingsDefaults(q.Settings),
		})
	}
	h.renderPage(w, r, p, inputs, d, pageOptions{})
}

type pageOptions struct {
	ShowEditor    bool
	SaveAllowed   bool
	ExportAllowed bool
	ListVisible   bool
}

type renderedQuery struct {
	SQL       string
	Verified  bool
	Title     string
	Widget    string
	Columns   []string
	Rows      [][]interface{}
	Truncated bool
	Duration  time.Duration
	Error     string
	SortLinks []string
}

type paramView struct {
	Name  string
	Value string
}

func (h *DashboardHandler) renderPage(w http.ResponseWriter, r *http.Request, p core.Principal, inputs []queryInput, dashboard *core.Dashboard, opts pageOptions) {
	paramSet := core.NewParameterSet()
	results := make([]renderedQuery, len(inputs))
	for i, in := range inputs {
		results[i] = renderedQuery{SQL: in.SQL, Verified: in.Verified, Title: in.Title}
		if err := paramSet.Extract(in.SQL, in.Defaults); err != nil {
			results[i].Error = err.Error()
		}
	}

	bound := paramSet.Bind(core.FormSource(r.PostForm), core.FormSource(r.URL.Query()))

	slug := ""
	if dashboard != nil {
		slug = dashboard.Slug
	}
	for i, in := range inputs {
		if results[i].Error != "" {
			continue
		}
		res := h.executor.Execute(r.Context(), in.SQL, bound, h.cfg.RowLimit)
		h.audit(p, slug, res)

		results[i].Columns = res.Columns
		results[i].Rows = service.DisplayableRows(res.Rows)
		results[i].Truncated = res.Truncated
		results[i].Duration = res.Duration.Round(time.Millisecond)
		results[i].Error = res.Error
		results[i].SortLinks = service.UnambiguousColumns(res.Columns)
		if in.TemplateOverride != "" {
			results[i].Widget = in.TemplateOverride
		} else {
			results[i].Widget = h.widgets.Choose(res.Columns)
		}
	}

	params := make([]paramView, 0)
	for _, param := range paramSet.Parameters() {
		value := ""
		if v := bound[param.Name]; v != nil {
			value = *v
		}
		params = append(params, paramView{Name: param.Name, Value: value})
	}

	var rawSQLs, signedTokens []string
	for _, in := range inputs {
		rawSQLs = append(rawSQLs, in.SQL)
		signedTokens = append(signedTokens, h.signer.Sign(in.SQL))
	}

	data := map[string]interface{}{
		"Queries":       results,
		"Parameters":    params,
		"RawSQLs":       rawSQLs,
		"SignedTokens":  signedTokens,
		"ShowEditor":    opts.ShowEditor,
		"SaveAllowed":   opts.SaveAllowed,
		"ExportAllowed": opts.ExportAllowed,
		"Username":      p.Username,
		"ParamAction":   "/dashboard",
		"Title":         "",
		"Description":   "",
	}
	if dashboard != nil {
		data["Title"] = dashboard.Title
		data["Description"] = dashboard.Description
		data["ParamAction"] = "/dashboard/" + dashboard.Slug + "/"
		data["CanEdit"] = core.CanEdit(p, dashboard)
	}
	if opts.ListVisible {
		if all, err := h.dashRepo.GetAll(); err == nil {
			data["Dashboards"] = core.VisibleTo(p, all)
		}
	}

	if err := h.templates.ExecuteTemplate(w, "dashboard", data); err != nil {
		logger.Error.Printf("render dashboard: %v", err)
	}
}

// export streams one query's full result set as an attachment. Requires the
// deployment-level full-export flag on top of the execute capability.
func (h *DashboardHandler) export(w http.ResponseWriter, r *http.Request, p core.Principal, raws []string, idx int, format service.ExportFormat) {
	if !h.cfg.EnableFullExport {
		http.Error(w, core.ErrExportDisabled.Error(), http.StatusForbidden)
		return
	}
	if idx < 0 || idx >= len(raws) {
		http.Error(w, "No such query", http.StatusBadRequest)
		return
	}
	sqlText := raws[idx]

	paramSet := core.NewParameterSet()
	if err := paramSet.Extract(sqlText, nil); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bound := paramSet.Bind(core.FormSource(r.PostForm), core.FormSource(r.URL.Query()))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", service.ExportFilename(sqlText, format)))
	w.Header().Set("Cache-Control", "private")

	start := time.Now()
	err := h.exporter.Stream(r.Context(), &flushWriter{w}, sqlText, bound, format)
	res := &service.QueryResult{SQL: sqlText, Duration: time.Since(start)}
	if err != nil {
		// Headers may already be out; all we can do is log and record it.
		res.Error = err.Error()
		logger.Error.Printf("export stream: %v", err)
	}
	h.audit(p, "", res)
}

// save persists the submitted queries as a new dashboard and redirects to it.
func (h *DashboardHandler) save(w http.ResponseWriter, r *http.Request, p core.Principal, raws []string) {
	slug := core.Slugify(r.PostForm.Get("_save-slug"))
	viewPolicy := core.ViewPolicy(r.PostForm.Get("_save-view_policy"))
	editPolicy := core.EditPolicy(r.PostForm.Get("_save-edit_policy"))

	if slug == "" || len(raws) == 0 {
		http.Error(w, "A slug and at least one query are required", http.StatusBadRequest)
		return
	}
	if !core.ViewPolicies[viewPolicy] || !core.EditPolicies[editPolicy] {
		http.Error(w, "Invalid policy", http.StatusBadRequest)
		return
	}

	owner := p.UserID
	d := &core.Dashboard{
		Slug:        slug,
		Title:       r.PostForm.Get("_save-title"),
		Description: r.PostForm.Get("_save-description"),
		OwnedByID:   &owner,
		CreatedAt:   time.Now(),
		ViewPolicy:  viewPolicy,
		EditPolicy:  editPolicy,
	}
	for _, raw := range raws {
		d.Queries = append(d.Queries, core.DashboardQuery{SQL: raw})
	}

	if err := h.dashRepo.Create(d); err != nil {
		http.Error(w, "Could not save dashboard: "+err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/dashboard/"+slug+"/", http.StatusFound)
}

// copyParameterValues carries submitted parameter values into the redirect
// URL so the following GET re-binds them.
func (h *DashboardHandler) copyParameterValues(raws []string, form url.Values, dest url.Values) {
	seen := map[string]bool{}
	for _, raw := range raws {
		names, err := core.ExtractNamedParameters(raw)
		if err != nil {
			continue
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			if v := form.Get(name); v != "" {
				dest.Set(name, v)
			}
		}
	}
}

func (h *DashboardHandler) principal(r *http.Request) core.Principal {
	session, _ := h.store.Get(r, sessionName)
	id, ok := session.Values["user_id"].(int64)
	if !ok || id == 0 {
		return core.Principal{}
	}
	user, err := h.userRepo.GetByID(id)
	if err != nil || !user.IsActive {
		return core.Principal{}
	}
	return h.authSvc.PrincipalFor(user)
}

func (h *DashboardHandler) requireExecute(w http.ResponseWriter, r *http.Request, p core.Principal) bool {
	if p.CanExecuteSQL() {
		return true
	}
	if !p.Authenticated {
		http.Redirect(w, r, "/login", http.StatusFound)
		return false
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
	return false
}

func (h *DashboardHandler) audit(p core.Principal, slug string, res *service.QueryResult) {
	status := "SUCCESS"
	if res.Error != "" {
		status = "ERROR"
	}
	err := h.auditRepo.Create(&core.AuditLog{
		Timestamp:     time.Now(),
		UserID:        p.UserID,
		DashboardSlug: slug,
		SQLText:       res.SQL,
		DurationMs:    res.Duration.Milliseconds(),
		Status:        status,
		ErrorMessage:  res.Error,
	})
	if err != nil {
		logger.Error.Printf("audit log: %v", err)
	}
}

// flushWriter pushes each written chunk straight to the client so exports
// stream instead of buffering.
type flushWriter struct {
	w http.ResponseWriter
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return n, err
}

// settingsDefaults pulls declared parameter defaults out of a saved query's
// settings blob.
func settingsDefaults(settings string) map[string]string {
	if settings == "" {
		return nil
	}
	var parsed struct {
		Defaults map[string]string `json:"defaults"`
	}
	if err := json.Unmarshal([]byte(settings), &parsed); err != nil {
		return nil
	}
	return parsed.Defaults
}
