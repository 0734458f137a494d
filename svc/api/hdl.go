package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"bindrop/cfg"
	"bindrop/pkg/domain"
	"bindrop/pkg/sniff"
	"bindrop/svc/svc"
	"bindrop/svc/util"
)

// browserSignatures marks a User-Agent as an interactive browser, which
// gets text pastes rendered as HTML instead of raw bytes.
var browserSignatures = []string{"Gecko/", "AppleWebKit/", "Opera/", "Trident/", "Chrome/"}

type Hdl struct {
	paste *svc.Paste
	tmpl  *Templates
	cfg   *cfg.Cfg
}

func NewHdl(p *svc.Paste, t *Templates, c *cfg.Cfg) *Hdl {
	return &Hdl{paste: p, tmpl: t, cfg: c}
}

func isBrowser(r *http.Request) bool {
	agent := r.Header.Get("User-Agent")
	if agent == "" {
		return false
	}
	for _, sig := range browserSignatures {
		if strings.Contains(agent, sig) {
			return true
		}
	}
	return false
}

// UploadForm handles GET / — the upload page. No storage access.
func (h *Hdl) UploadForm(w http.ResponseWriter, r *http.Request) {
	h.renderHTML(w, r, "upload.html", map[string]string{"Prefix": h.cfg.URLPrefix})
}

// GetOne handles GET /{name}: the shell client script and readme pages,
// then static assets, then paste ids, in that order.
func (h *Hdl) GetOne(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	switch name {
	case "paste.sh":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := h.tmpl.Render(w, "paste.sh", map[string]string{"Prefix": h.cfg.URLPrefix}); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("template render failed")
		}
		return
	case "readme":
		h.renderHTML(w, r, "readme.html", map[string]string{"Prefix": h.cfg.URLPrefix})
		return
	}
	if h.serveStatic(w, r, name) {
		return
	}
	h.servePaste(w, r, name, false)
}

// GetNamed handles GET /{name}/{filename}. The filename is ignored for
// the lookup; its presence suppresses the canonicalizing redirect.
func (h *Hdl) GetNamed(w http.ResponseWriter, r *http.Request) {
	h.servePaste(w, r, chi.URLParam(r, "name"), true)
}

// serveStatic streams a file from the static directory if one of that
// name exists. Reports whether it handled the request.
func (h *Hdl) serveStatic(w http.ResponseWriter, r *http.Request, name string) bool {
	if h.cfg.StaticDir == "" || name == "" || strings.Contains(name, "..") {
		return false
	}
	path := filepath.Join(h.cfg.StaticDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		h.writeErr(w, r, domain.WrapStorage(errors.Wrap(err, "read static file")))
		return true
	}
	w.Header().Set("Content-Type", sniff.Resolve(name, data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	return true
}

func (h *Hdl) servePaste(w http.ResponseWriter, r *http.Request, id string, nameProvided bool) {
	log := hlog.FromRequest(r)
	if !nameProvided {
		name, err := h.paste.FileName(r.Context(), id)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		if name != "" {
			// Permanent redirect so browsers download under the
			// original file name. Retrieval works without it.
			target := h.cfg.URLPrefix + id + "/" + url.PathEscape(name)
			if _, err := url.Parse(target); err != nil {
				h.writeErr(w, r, domain.ErrInvalidRequest)
				return
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
	}

	entry, err := h.paste.Fetch(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if sniff.IsText(entry.MimeType) && isBrowser(r) && utf8.Valid(entry.Data) {
		h.renderHTML(w, r, "show.html", map[string]string{
			"ID":       id,
			"MimeType": entry.MimeType,
			"FileName": entry.FileName,
			"Content":  string(entry.Data),
		})
		return
	}
	w.Header().Set("Content-Type", sniff.ToContentType(entry.MimeType))
	w.WriteHeader(http.StatusOK)
	w.Write(entry.Data)
	log.Debug().Str("paste_id", id).Str("mime", entry.MimeType).Msg("paste served")
}

// CreatePaste handles POST and PUT, which are deliberately identical: the
// optional path segment is a desired file name, not a resource location.
func (h *Hdl) CreatePaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	fileName := chi.URLParam(r, "name")
	expires, expiresSet := queryArg(r, "expires")

	id, err := h.paste.Ingest(r.Context(), svc.IngestParams{
		Body:           r.Body,
		DeclaredLength: r.ContentLength,
		FileName:       fileName,
		Expires:        expires,
		ExpiresSet:     expiresSet,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	log.Info().
		Str("paste_id", id).
		Str("file_name", fileName).
		Int64("size", r.ContentLength).
		Msg("paste created")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, "%s%s\n", h.cfg.URLPrefix, id)
}

// DeletePaste handles DELETE /{name}. Removing an id that does not exist
// succeeds; the outcome is the same either way.
func (h *Hdl) DeletePaste(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "name")
	if id == "" {
		h.writeErr(w, r, domain.ErrNoIDSegment)
		return
	}
	if err := h.paste.Delete(r.Context(), id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("paste_id", id).Msg("paste deleted")
	w.WriteHeader(http.StatusOK)
}

func (h *Hdl) renderHTML(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Render(w, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("template render failed")
		h.writeErr(w, r, domain.WrapStorage(err))
	}
}

func (h *Hdl) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := domain.Status(err)
	if status >= http.StatusInternalServerError {
		util.Error().
			Err(err).
			Str("request_id", util.GetRequestID(r.Context())).
			Msg("internal error")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s\n", domain.Message(err))
}

func queryArg(r *http.Request, key string) (string, bool) {
	values := r.URL.Query()
	if _, ok := values[key]; !ok {
		return "", false
	}
	return values.Get(key), true
}
