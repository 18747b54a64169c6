package web

import (
	"net/http"

	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/models"
)

// LinksPost handles POST /dashboard/links.
func (h *Handler) LinksPost(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseLinkCommand(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u := auth.CurrentUser(r.Context())
	switch c := cmd.(type) {
	case createLinkCommand:
		h.createLink(w, r, u, c)
	case deleteLinkCommand:
		h.deleteLink(w, r, u, c)
	case reorderLinksCommand:
		h.reorderLinks(w, r, u, c)
	}
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request, u *models.User, c createLinkCommand) {
	link, err := h.svc.Links.Create(r.Context(), u.ID, c.Input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Link added: "+link.Title, map[string]any{"link": link})
}

func (h *Handler) deleteLink(w http.ResponseWriter, r *http.Request, u *models.User, c deleteLinkCommand) {
	if err := h.svc.Links.Delete(r.Context(), u.ID, c.LinkID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Link deleted", nil)
}

func (h *Handler) reorderLinks(w http.ResponseWriter, r *http.Request, u *models.User, c reorderLinksCommand) {
	links, err := h.svc.Links.Reorder(r.Context(), u.ID, c.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Links reordered", map[string]any{"links": links})
}
