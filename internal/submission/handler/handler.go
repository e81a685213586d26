package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rekam/internal/identity"
	"rekam/internal/platform/metrics"
	"rekam/internal/platform/middleware"
	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
	dErrors "rekam/pkg/domain-errors"
	audit "rekam/pkg/platform/audit"
	"rekam/pkg/platform/httputil"
	authmw "rekam/pkg/platform/middleware/auth"
	"rekam/pkg/platform/middleware/metadata"
	"rekam/pkg/platform/middleware/requesttime"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 1000
)

// Service defines the submission workflow operations exposed over HTTP.
type Service interface {
	Categories() []*models.Category
	List(ctx context.Context, category string, actor identity.Actor, params models.ListParams) (*models.Page, error)
	Create(ctx context.Context, category string, payload models.Payload, actor identity.Actor) (*models.Submission, error)
	Get(ctx context.Context, category string, submissionID id.SubmissionID, actor identity.Actor) (*models.Submission, error)
	Edit(ctx context.Context, category string, submissionID id.SubmissionID, payload models.Payload, actor identity.Actor) (*models.Submission, error)
	Delete(ctx context.Context, category string, submissionID id.SubmissionID, actor identity.Actor) error
	ToggleReady(ctx context.Context, category string, submissionID id.SubmissionID, actor identity.Actor) (bool, error)
	SetScheduledDate(ctx context.Context, category string, submissionID id.SubmissionID, date string, actor identity.Actor) error
}

// ActivityReader reads the audit trail.
type ActivityReader interface {
	List(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handler serves the submission endpoints.
type Handler struct {
	logger         *slog.Logger
	submissions    Service
	activity       ActivityReader
	metrics        *metrics.Metrics
	jwtValidator   authmw.JWTValidator
	resolver       *identity.Resolver
	requestTimeout time.Duration
}

// New creates a submission Handler.
func New(
	submissions Service,
	activity ActivityReader,
	resolver *identity.Resolver,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator authmw.JWTValidator,
	requestTimeout time.Duration) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Handler{
		logger:         logger,
		submissions:    submissions,
		activity:       activity,
		metrics:        metrics,
		jwtValidator:   jwtValidator,
		resolver:       resolver,
		requestTimeout: requestTimeout,
	}
}

// Register registers the submission routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(h.requestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(authmw.RequireAuth(h.jwtValidator, h.logger))
	router.Use(identity.Middleware(h.resolver, h.logger))
	h.routes(router)

	r.Mount("/", router)
}

func (h *Handler) routes(r chi.Router) {
	r.Get("/categories", h.handleListCategories)
	r.Get("/activity", h.handleActivity)
	r.Route("/submissions/{category}", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleEdit)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/ready", h.handleToggleReady)
		r.Put("/{id}/scheduled-date", h.handleSetScheduledDate)
	})
}

// actor returns the resolved caller or writes an error response.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	ctx := r.Context()
	actor, ok := identity.ActorFromContext(ctx)
	if !ok {
		// RequireAuth and identity.Middleware guarantee an actor
		h.logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return identity.Actor{}, false
	}
	return actor, true
}

func (h *Handler) submissionID(w http.ResponseWriter, r *http.Request) (id.SubmissionID, bool) {
	submissionID, err := id.ParseSubmissionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.SubmissionID{}, false
	}
	return submissionID, true
}

// writeServiceError logs at a level matching the failure and writes the response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{"error", err, "request_id", middleware.GetRequestID(ctx)}
	switch dErrors.CodeOf(err) {
	case dErrors.CodePersistence, dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.submissions.Categories()
	resp := CategoriesResponse{Categories: make([]CategoryResponse, 0, len(cats))}
	for _, c := range cats {
		resp.Categories = append(resp.Categories, toCategoryResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.submissions.List(ctx, chi.URLParam(r, "category"), actor, params)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list submissions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPageResponse(page))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmissionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sub, err := h.submissions.Create(ctx, chi.URLParam(r, "category"), req.Fields, actor)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create submission", err)
		return
	}

	h.logger.InfoContext(ctx, "submission created",
		"category", sub.Category,
		"submission_id", sub.ID.String(),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, CreatedResponse{ID: sub.ID.String()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	sub, err := h.submissions.Get(ctx, chi.URLParam(r, "category"), submissionID, actor)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSubmissionResponse(sub))
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmissionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sub, err := h.submissions.Edit(ctx, chi.URLParam(r, "category"), submissionID, req.Fields, actor)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to edit submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSubmissionResponse(sub))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "delete must be confirmed with confirm=true"))
		return
	}

	if err := h.submissions.Delete(ctx, chi.URLParam(r, "category"), submissionID, actor); err != nil {
		h.writeServiceError(ctx, w, "failed to delete submission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToggleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	ready, err := h.submissions.ToggleReady(ctx, chi.URLParam(r, "category"), submissionID, actor)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to toggle ready flag", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReadyResponse{ReadyForRecording: ready})
}

func (h *Handler) handleSetScheduledDate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submissionID, ok := h.submissionID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ScheduledDateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.submissions.SetScheduledDate(ctx, chi.URLParam(r, "category"), submissionID, req.Date, actor); err != nil {
		h.writeServiceError(ctx, w, "failed to set scheduled date", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ScheduledDateResponse{ScheduledDate: req.Date})
}

// handleActivity returns the audit trail. Only admin and superuser may read it.
func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsPrivileged() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only admin or superuser may read activity"))
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var events []audit.Event
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, parseErr := id.ParseUserID(raw)
		if parseErr != nil {
			httputil.WriteError(w, parseErr)
			return
		}
		events, err = h.activity.List(ctx, userID, limit)
	} else {
		events, err = h.activity.ListRecent(ctx, limit)
	}
	if err != nil {
		h.writeServiceError(ctx, w, "failed to read activity",
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to read activity"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, ActivityResponse{Events: events})
}

func parseListParams(r *http.Request) (models.ListParams, error) {
	q := r.URL.Query()
	params := models.ListParams{Search: q.Get("q")}
	var err error
	if raw := q.Get("page"); raw != "" {
		if params.Page, err = strconv.Atoi(raw); err != nil {
			return params, dErrors.New(dErrors.CodeBadRequest, "page must be an integer")
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if params.PageSize, err = strconv.Atoi(raw); err != nil {
			return params, dErrors.New(dErrors.CodeBadRequest, "page_size must be an integer")
		}
	}
	return params, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultActivityLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	return min(limit, maxActivityLimit), nil
}
