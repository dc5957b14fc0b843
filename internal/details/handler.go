package details

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

var formTmpl = template.Must(template.ParseFS(templateFS, "templates/details.html"))

// Handler exposes the details form screen.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the details service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with the details screen routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/", h.Show)
	r.Post("/edit", h.Edit)
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

// Edit applies a single field edit, as sent on every keystroke or tap.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
	} else {
		req.Field, req.Value = r.FormValue("field"), r.FormValue("value")
	}

	v, err := h.svc.Edit(r.Context(), appState(r), Field(req.Field), req.Value)
	if err != nil {
		h.editError(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, v)
		return
	}
	http.Redirect(w, r, navigation.Path(navigation.ScreenProfileCreation), http.StatusSeeOther)
}

// Continue applies any submitted field values, then runs the continuation.
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	app := appState(r)

	if edits := submitted(r); len(edits) > 0 {
		if _, err := h.svc.Apply(r.Context(), app, edits); err != nil {
			h.editError(w, r, err)
			return
		}
	}

	if err := h.svc.Continue(r.Context(), app); err != nil {
		var (
			fe   FieldErrors
			perr *PersistenceError
		)
		switch {
		case errors.As(err, &fe):
			h.renderWithMessage(w, r, http.StatusUnprocessableEntity, MsgIncomplete, fe)
		case errors.Is(err, ErrContinueInProgress):
			h.renderWithMessage(w, r, http.StatusConflict, MsgInProgress, nil)
		case errors.As(err, &perr):
			h.renderWithMessage(w, r, http.StatusBadGateway, MsgSaveFailed, nil)
		default:
			writeError(w, r, http.StatusInternalServerError, err)
		}
		return
	}

	next := navigation.ScreenHome
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, ContinueResponse{Next: string(next), Path: navigation.Path(next)})
		return
	}
	http.Redirect(w, r, navigation.Path(next), http.StatusSeeOther)
}

func (h *Handler) editError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrUnknownField) || errors.Is(err, choice.ErrUnknownOption) {
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.renderWithMessage(w, r, http.StatusBadRequest, MsgInvalidValue, nil)
		return
	}
	writeError(w, r, http.StatusInternalServerError, err)
}

func (h *Handler) renderWithMessage(w http.ResponseWriter, r *http.Request, status int, msg string, fe FieldErrors) {
	v, err := h.svc.Screen(r.Context(), appState(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	v.Message = msg
	if len(fe) > 0 {
		v.Errors = make(map[string]string, len(fe))
		for f, m := range fe {
			v.Errors[string(f)] = m
		}
	}
	render(w, r, status, v)
}

// ---- helpers ----

// submitted collects the form fields present in a continue post. JSON
// clients edit field by field and send an empty continue.
func submitted(r *http.Request) map[Field]string {
	if isJSON(r) {
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return nil
	}
	edits := make(map[Field]string)
	for _, f := range AllFields {
		if vs, ok := r.PostForm[string(f)]; ok && len(vs) > 0 {
			edits[f] = vs[0]
		}
	}
	return edits
}

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

func render(w http.ResponseWriter, r *http.Request, status int, v *FormView) {
	if wantsJSON(r) {
		writeJSON(w, status, v)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTmpl.Execute(w, v); err != nil {
		log.Error().Err(err).Msg("render details screen")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log.Error().Err(err).Str("path", r.URL.Path).Msg("details screen error")
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
