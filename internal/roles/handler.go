package roles

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"onboarding-service/internal/choice"
	"onboarding-service/internal/navigation"
	"onboarding-service/pkg/jwt"
)

//go:embed templates/*.html
var templateFS embed.FS

var screenTmpl = template.Must(template.ParseFS(templateFS, "templates/role_select.html"))

// Handler exposes the role selection screen.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the role service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with the role screen routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.Show)
	r.Post("/select", h.Select)
	r.Post("/continue", h.Continue)
	return r
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Screen(r.Context(), appState(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	render(w, r, http.StatusOK, v)
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
	} else {
		req.Role = r.FormValue("role")
	}

	v, err := h.svc.Select(r.Context(), appState(r), Role(req.Role))
	switch {
	case errors.Is(err, choice.ErrUnknownOption):
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.renderWithMessage(w, r, http.StatusBadRequest, MsgUnknownRole)
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, v)
		return
	}
	http.Redirect(w, r, navigation.Path(navigation.ScreenRoleSelect), http.StatusSeeOther)
}

func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.Continue(r.Context(), appState(r))
	if err != nil {
		var perr *PersistenceError
		switch {
		case errors.Is(err, ErrNoSelection):
			h.renderWithMessage(w, r, http.StatusUnprocessableEntity, MsgSelectRole)
		case errors.Is(err, ErrContinueInProgress):
			h.renderWithMessage(w, r, http.StatusConflict, MsgInProgress)
		case errors.As(err, &perr):
			h.renderWithMessage(w, r, http.StatusBadGateway, MsgSaveFailed)
		default:
			writeError(w, r, http.StatusInternalServerError, err)
		}
		return
	}

	// Re-issue the token so the new role travels with the user.
	token, err := jwt.Generate(app.UserID, app.Email, app.Role)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	jwt.SetCookie(w, token)

	next := navigation.ScreenProfileCreation
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, ContinueResponse{
			Role:  app.Role,
			Next:  string(next),
			Path:  navigation.Path(next),
			Token: token,
		})
		return
	}
	http.Redirect(w, r, navigation.Path(next), http.StatusSeeOther)
}

func (h *Handler) renderWithMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	v, err := h.svc.Screen(r.Context(), appState(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	v.Message = msg
	render(w, r, status, v)
}

// ---- helpers ----

func appState(r *http.Request) navigation.AppState {
	c := jwt.GetClaims(r.Context())
	return navigation.AppState{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func render(w http.ResponseWriter, r *http.Request, status int, v *ScreenView) {
	if wantsJSON(r) {
		writeJSON(w, status, v)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := screenTmpl.Execute(w, v); err != nil {
		log.Error().Err(err).Msg("render role screen")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log.Error().Err(err).Str("path", r.URL.Path).Msg("role screen error")
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
