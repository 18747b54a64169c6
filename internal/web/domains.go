package web

import (
	"net/http"

	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/service"
)

// DomainPost handles POST /dashboard/domain.
func (h *Handler) DomainPost(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseDomainCommand(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u := auth.CurrentUser(r.Context())
	switch c := cmd.(type) {
	case setDomainCommand:
		h.setDomain(w, r, u, c)
	case removeDomainCommand:
		h.removeDomain(w, r, u)
	case verifyOwnershipCommand:
		h.verifyOwnership(w, r, u)
	case verifyCNAMECommand:
		h.verifyCNAME(w, r, u)
	}
}

func domainFields(b *models.Biolink) map[string]any {
	return map[string]any{
		"domain": b.CustomDomain,
		"status": b.DomainStatus(),
	}
}

func (h *Handler) setDomain(w http.ResponseWriter, r *http.Request, u *models.User, c setDomainCommand) {
	b, err := h.svc.Domains.Set(r.Context(), u.ID, c.Domain)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	fields := domainFields(b)
	fields["verificationToken"] = b.DomainVerificationToken
	h.succeed(w, r, "Domain saved. Add the TXT record to verify ownership.", fields)
}

func (h *Handler) removeDomain(w http.ResponseWriter, r *http.Request, u *models.User) {
	b, err := h.svc.Domains.Remove(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Custom domain removed", domainFields(b))
}

func (h *Handler) verifyOwnership(w http.ResponseWriter, r *http.Request, u *models.User) {
	v, err := h.svc.Domains.VerifyOwnership(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Ownership verified. Now point a CNAME record at " + h.cfg.CNAMETarget + "."
	if !v.Verified {
		msg = "TXT record not found yet. DNS changes can take a while to show up."
	}
	h.verified(w, r, v, msg)
}

func (h *Handler) verifyCNAME(w http.ResponseWriter, r *http.Request, u *models.User) {
	v, err := h.svc.Domains.VerifyCNAME(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Your custom domain is live."
	if !v.Verified {
		msg = "CNAME record not found yet. DNS changes can take a while to show up."
	}
	h.verified(w, r, v, msg)
}

// verified reports a DNS check. A record that is not visible yet is not an
// error, so browsers still get a success flash with the hint.
func (h *Handler) verified(w http.ResponseWriter, r *http.Request, v *service.Verification, msg string) {
	fields := domainFields(v.Biolink)
	fields["verified"] = v.Verified
	h.succeed(w, r, msg, fields)
}
