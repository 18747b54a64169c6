package web

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/biolinq/biolinq/internal/cache"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Module widths in pixels for the ?size= presets.
var qrSizes = map[string]uint8{"s": 6, "m": 10, "l": 16}

// qrStyle is the look of a profile QR code, read from the query string.
type qrStyle struct {
	circle   bool
	fg       string
	width    uint8
	download bool
}

// parseQRStyle reads ?shape=circle, ?fg=#rrggbb, ?size=s|m|l and ?dl=1. A
// premium profile without ?fg uses its primary colour.
func parseQRStyle(q url.Values, p *cache.Profile) qrStyle {
	s := qrStyle{
		circle:   q.Get("shape") == "circle",
		fg:       q.Get("fg"),
		width:    qrSizes["m"],
		download: q.Get("dl") == "1",
	}
	if w, ok := qrSizes[q.Get("size")]; ok {
		s.width = w
	}
	if s.fg == "" && p.IsPremium {
		s.fg = p.Biolink.CustomPrimaryColor
	}
	if !hexColorRe.MatchString(s.fg) {
		s.fg = ""
	}
	return s
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// renderQR encodes content as a PNG on a transparent background.
func renderQR(content string, s qrStyle) ([]byte, error) {
	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(s.width),
		standard.WithBorderWidth(20),
		standard.WithBgTransparent(),
	}
	if s.circle {
		opts = append(opts, standard.WithCircleShape())
	}
	if s.fg != "" {
		opts = append(opts, standard.WithFgColorRGBHex(s.fg))
	}

	qrc, err := qrcode.New(content)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := qrc.Save(standard.NewWithWriter(nopCloser{&buf}, opts...)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ProfileQRCode serves GET /{username}/qr.png, a QR code for the profile's
// public URL.
func (h *Handler) ProfileQRCode(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileByUsername(r.Context(), chi.URLParam(r, "username"), false)
	if err != nil {
		h.profileError(w, r, err)
		return
	}

	style := parseQRStyle(r.URL.Query(), p)
	png, err := renderQR(h.publicURL(p.Biolink), style)
	if err != nil {
		h.log.Error().Err(err).Str("username", p.Biolink.Username).Msg("render qr code")
		http.Error(w, "failed to render qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if style.download {
		w.Header().Set("Content-Disposition", `attachment; filename="`+p.Biolink.Username+`-qr.png"`)
	}
	w.Write(png)
}
