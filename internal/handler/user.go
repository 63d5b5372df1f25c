package handler

import (
	"net/http"

	"github.com/templui/pawcare/internal/ctxkeys"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/service"
	"github.com/templui/pawcare/internal/validation"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// Me returns the caller's own account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := ctxkeys.Session(r.Context())

	user, err := h.userService.ByID(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type adminFlagsRequest struct {
	Flags *model.AdminFlags `json:"flags"`
}

// MakeAdmin accepts an optional body; no flags grants every area.
func (h *UserHandler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	var body adminFlagsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, r, err, nil)
			return
		}
	}

	var flags model.AdminFlags
	if body.Flags != nil {
		flags = *body.Flags
	}

	user, err := h.userService.MakeAdmin(r.Context(), r.PathValue("id"), flags)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	session := ctxkeys.Session(r.Context())

	user, err := h.userService.RevokeAdmin(r.Context(), session, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) SetAdminFlags(w http.ResponseWriter, r *http.Request) {
	session := ctxkeys.Session(r.Context())

	var body adminFlagsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if body.Flags == nil {
		writeError(w, r, &service.ValidationError{Fields: []validation.FieldError{
			{Field: "flags", Reason: validation.ReasonRequired},
		}}, nil)
		return
	}

	user, err := h.userService.SetFlags(r.Context(), session, r.PathValue("id"), *body.Flags)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
