package web

import (
	"net/http"

	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/models"
)

// SettingsPost handles POST /dashboard/settings.
func (h *Handler) SettingsPost(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseSettingsCommand(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u := auth.CurrentUser(r.Context())
	switch c := cmd.(type) {
	case updateGA4Command:
		h.updateGA4(w, r, u, c)
	case deleteAccountCommand:
		h.deleteAccount(w, r, u)
	}
}

func (h *Handler) updateGA4(w http.ResponseWriter, r *http.Request, u *models.User, c updateGA4Command) {
	b, err := h.svc.Customization.UpdateGA4(r.Context(), u.ID, c.MeasurementID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Google Analytics connected"
	if b.GA4MeasurementID == "" {
		msg = "Google Analytics disconnected"
	}
	h.succeed(w, r, msg, map[string]any{"measurementId": b.GA4MeasurementID})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request, u *models.User) {
	if err := h.svc.Accounts.Delete(r.Context(), u.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	// The session row is gone with the account; this clears the cookie.
	if err := h.auth.Logout(w, r); err != nil {
		h.log.Warn().Err(err).Msg("clear session after account deletion")
	}
	h.log.Info().Str("user_id", u.ID).Msg("account deleted by user")

	if handlers.WantsJSON(r) {
		handlers.WriteOK(w, map[string]any{"redirect": "/"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// AppearancePost handles POST /dashboard/appearance.
func (h *Handler) AppearancePost(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseAppearanceCommand(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u := auth.CurrentUser(r.Context())
	switch c := cmd.(type) {
	case updateThemeCommand:
		b, err := h.svc.Customization.UpdateTheme(r.Context(), u.ID, c.Input)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.succeed(w, r, "Appearance updated", map[string]any{
			"theme":        b.Theme,
			"primaryColor": b.CustomPrimaryColor,
			"bgColor":      b.CustomBgColor,
		})
	}
}
