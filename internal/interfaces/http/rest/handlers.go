package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"usergraph-portal/internal/config"
	"usergraph-portal/internal/domain"
	"usergraph-portal/internal/gateway"
	"usergraph-portal/internal/middleware"
	"usergraph-portal/internal/session"
	"usergraph-portal/internal/validation"
	"usergraph-portal/pkg/api"
	appErrors "usergraph-portal/pkg/errors"
)

// Handler serves the portal's JSON API. One instance is shared across all
// sessions; per-session state lives in the session store.
type Handler struct {
	cfg      *config.Config
	client   *gateway.Client
	sessions *session.Store
	logger   *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(cfg *config.Config, client *gateway.Client, sessions *session.Store, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		logger:   logger,
	}
}

// session resolves the caller's session from the cookie, creating one (and
// setting the cookie) on first contact.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if cookie, err := r.Cookie(h.cfg.Session.CookieName); err == nil {
		id = cookie.Value
	}

	sess := h.sessions.GetOrCreate(id)
	if sess.ID() != id {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cfg.Session.CookieName,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login proxies the credentials to the backend auth endpoint. Empty fields
// fall back to the configured demo credentials, matching the pre-filled
// login form. Login never hard-fails: an unreachable or rejecting auth
// endpoint degrades to a fallback demo token, reported via the fallback
// flag.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		req.Email = h.cfg.Demo.User
	}
	if req.Password == "" {
		req.Password = h.cfg.Demo.Password
	}

	sess := h.session(w, r)
	result := h.client.Authenticate(r.Context(), sess.Settings(), req.Email, req.Password)
	sess.SetAuth(result)

	if result.Fallback {
		h.logger.Warn("session logged in with fallback token",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}
	api.Success(w, http.StatusOK, api.LoginResponse{
		Authenticated: true,
		Fallback:      result.Fallback,
	})
}

// Session exposes the current session state to the page.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	_, fallback := sess.Auth()
	_, hasGraph := sess.Graph()
	settings := sess.Settings()

	api.Success(w, http.StatusOK, api.SessionResponse{
		Authenticated: sess.Authenticated(),
		Fallback:      fallback,
		HasGraph:      hasGraph,
		Settings: api.SettingsResponse{
			BaseURL:   settings.BaseURL,
			APIKeySet: settings.APIKey != "",
		},
		DemoUser: h.cfg.Demo.User,
	})
}

// UpdateSettings applies live edits to the session's backend settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req api.SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BaseURL != "" && !strings.HasPrefix(req.BaseURL, "http://") && !strings.HasPrefix(req.BaseURL, "https://") {
		api.Error(w, http.StatusBadRequest, "base URL must be http(s)")
		return
	}

	sess := h.session(w, r)
	settings := sess.UpdateSettings(req.BaseURL, req.APIKey)

	api.Success(w, http.StatusOK, api.SettingsResponse{
		BaseURL:   settings.BaseURL,
		APIKeySet: settings.APIKey != "",
	})
}

// FetchGraph validates the submitted contact fields, shapes the backend
// request (JSON, or multipart when a document was uploaded) and fetches
// the user graph. A failed fetch leaves the previously fetched graph
// untouched in the session.
func (h *Handler) FetchGraph(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if !sess.Authenticated() {
		api.Error(w, http.StatusUnauthorized, "login required")
		return
	}

	phone, email, attachment, err := h.parseSubmission(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	contact, err := validation.ValidateContact(phone, email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outgoing, err := gateway.BuildGraphRequest(contact, attachment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	token, _ := sess.Auth()
	result, err := h.client.FetchGraph(r.Context(), sess.Settings(), token, outgoing)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sess.SetGraph(result)
	api.Success(w, http.StatusOK, api.NewGraphResponse(result))
}

// ExportGraph offers the raw backend JSON of the last fetched graph as a
// download, byte-identical to what the backend returned.
func (h *Handler) ExportGraph(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	result, ok := sess.Graph()
	if !ok {
		api.Error(w, http.StatusNotFound, "no graph fetched yet")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="user_graph.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(result.Raw)
}

// parseSubmission reads the contact fields and optional document from
// either a JSON body or a multipart form.
func (h *Handler) parseSubmission(r *http.Request) (phone, email string, attachment *domain.Attachment, err error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.cfg.Server.MaxUploadBytes); err != nil {
			return "", "", nil, appErrors.NewValidation("could not parse form upload")
		}
		phone = r.FormValue("phone")
		email = r.FormValue("email")

		file, header, err := r.FormFile("vehicle_document")
		if err == http.ErrMissingFile {
			return phone, email, nil, nil
		}
		if err != nil {
			return "", "", nil, appErrors.NewValidation("could not read uploaded document")
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, h.cfg.Server.MaxUploadBytes+1))
		if err != nil {
			return "", "", nil, appErrors.NewInternal("failed to read uploaded document", err)
		}
		if int64(len(data)) > h.cfg.Server.MaxUploadBytes {
			return "", "", nil, appErrors.NewValidation(
				fmt.Sprintf("document exceeds the %d byte upload limit", h.cfg.Server.MaxUploadBytes))
		}
		return phone, email, &domain.Attachment{Filename: header.Filename, Bytes: data}, nil
	}

	var body struct {
		Phone string `json:"phone"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", "", nil, appErrors.NewValidation("invalid request body")
	}
	return body.Phone, body.Email, nil, nil
}

// writeError maps the error taxonomy onto HTTP responses. Backend problem
// details are propagated verbatim; internals are not.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	switch {
	case appErrors.IsValidation(err):
		appErr, _ := appErrors.AsAppError(err)
		api.Error(w, http.StatusBadRequest, appErr.Message)

	case appErrors.IsBackend(err):
		appErr, _ := appErrors.AsAppError(err)
		h.logger.Warn("backend rejected graph fetch",
			zap.String("request_id", requestID),
			zap.Int("backend_status", appErr.StatusCode),
		)
		api.ErrorDetail(w, http.StatusBadGateway, api.ErrorResponse{
			Error:         fmt.Sprintf("backend error %d", appErr.StatusCode),
			BackendStatus: appErr.StatusCode,
			ProblemDetail: appErr.ProblemDetail,
		})

	case appErrors.IsNetwork(err):
		h.logger.Warn("backend unreachable",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		api.Error(w, http.StatusBadGateway, "backend unreachable, please retry")

	case appErrors.IsRender(err):
		h.logger.Warn("graph payload could not be rendered",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		api.Error(w, http.StatusBadGateway, "backend returned an unrenderable graph payload")

	default:
		h.logger.Error("internal error",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		api.Error(w, http.StatusInternalServerError, "an internal error occurred")
	}
}
