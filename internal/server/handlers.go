package server

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mustx/internal/formatter"
	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/desertthunder/mustx/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MsgInvalidUsername is the form error shown for a blank username.
const MsgInvalidUsername = "Input valid username"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>mustx</title>
</head>
<body>
  <h1>MustApp lists</h1>
  <form method="post" action="/">
    <input name="username" value="{{.Username}}" placeholder="MustApp username" autofocus>
    <button type="submit">Load</button>
  </form>
  {{with .Error}}<p class="error">{{.}}</p>{{end}}
</body>
</html>
`))

// Loader loads a user's snapshot, from the cache unless update is set.
type Loader interface {
	Load(ctx context.Context, username string, update bool, progress chan<- tasks.ProgressUpdate) (*models.Snapshot, error)
}

// Opts configures the handlers built by [New].
type Opts struct {
	Logger   *log.Logger
	Registry *prometheus.Registry // enables /metrics and request counters when set
	Now      func() time.Time
}

// App serves the username form, user data as JSON and workbook downloads.
type App struct {
	loader Loader
	logger *log.Logger
	now    func() time.Time
}

// MetricsHandler exposes a prometheus registry.
type MetricsHandler struct {
	http.Handler
}

// NewMetricsHandler serves reg in the prometheus text format.
func NewMetricsHandler(reg *prometheus.Registry) *MetricsHandler {
	return &MetricsHandler{Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})}
}

// Routes returns the HTTP routes this handler serves.
func (h *MetricsHandler) Routes() []string {
	return []string{"GET /metrics"}
}

// New builds the router with every route and middleware registered.
func New(loader Loader, opts Opts) *BasicRouter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	app := &App{loader: loader, logger: opts.Logger, now: opts.Now}

	router := NewBasicRouter()
	router.Use(RecoverMiddleware(opts.Logger), LoggingMiddleware(opts.Logger))
	if opts.Registry != nil {
		router.Use(MetricsMiddleware(opts.Registry))
		router.Handler(NewMetricsHandler(opts.Registry))
	}

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(app.Index))
	router.Handle(http.MethodPost, "/{$}", http.HandlerFunc(app.Submit))
	router.Handle(http.MethodGet, "/user/{username}", http.HandlerFunc(app.User))
	router.Handle(http.MethodGet, "/user/{username}/export.xlsx", http.HandlerFunc(app.Export))
	return router
}

type indexData struct {
	Username string
	Error    string
}

// Index renders the username form.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	a.renderIndex(w, http.StatusOK, indexData{})
}

// Submit validates the form and redirects to the user's page.
func (a *App) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderIndex(w, http.StatusBadRequest, indexData{Error: MsgInvalidUsername})
		return
	}

	username := r.PostForm.Get("username")
	if shared.IsBlank(username) {
		a.renderIndex(w, http.StatusBadRequest, indexData{Username: username, Error: MsgInvalidUsername})
		return
	}

	http.Redirect(w, r, "/user/"+url.PathEscape(strings.TrimSpace(username)), http.StatusSeeOther)
}

type userResponse struct {
	Username         string                  `json:"username"`
	FetchTimestamp   time.Time               `json:"fetchTimestamp"`
	UserID           int64                   `json:"userId"`
	Lists            []models.ListDescriptor `json:"lists"`
	UserProductLists models.UserProductLists `json:"userProductLists"`
}

// User returns the user's snapshot as JSON. The "update" query parameter skips the cache.
func (a *App) User(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.load(w, r)
	if !ok {
		return
	}

	_, pretty := r.URL.Query()["pretty"]
	data, err := shared.MarshalJSON(userResponse{
		Username:         snapshot.Username,
		FetchTimestamp:   snapshot.FetchTimestamp,
		UserID:           snapshot.Profile.ID,
		Lists:            snapshot.Descriptors(),
		UserProductLists: snapshot.Lists,
	}, pretty)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// Export returns the user's lists as an xlsx attachment.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.load(w, r)
	if !ok {
		return
	}

	now := a.now()
	var buf bytes.Buffer
	if err := formatter.WriteWorkbook(&buf, snapshot.Lists, snapshot.FetchTimestamp, formatter.WorkbookOpts{Location: now.Location()}); err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+formatter.ExportFilename(now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

func (a *App) load(w http.ResponseWriter, r *http.Request) (*models.Snapshot, bool) {
	username := r.PathValue("username")
	_, update := r.URL.Query()["update"]

	snapshot, err := a.loader.Load(r.Context(), username, update, nil)
	if err != nil {
		a.logger.Warn("failed to load user", "username", username, "error", err)
		a.writeError(w, statusFor(err), err)
		return nil, false
	}
	return snapshot, true
}

func (a *App) renderIndex(w http.ResponseWriter, status int, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, data); err != nil {
		a.logger.Error("failed to render index", "error", err)
	}
}

// writeError answers with the same error envelope the MustApp API uses.
func (a *App) writeError(w http.ResponseWriter, status int, err error) {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	body.Error.Message = err.Error()

	data, _ := shared.MarshalJSON(body, false)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrPrivateProfile):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
