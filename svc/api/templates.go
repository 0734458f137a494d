package api

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"os"
	"path/filepath"
	texttemplate "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.html templates/paste.sh
var defaultTemplates embed.FS

// Templates holds the rendered pages. HTML pages go through html/template
// for escaping; paste.sh is plain text and must not be escaped.
type Templates struct {
	html *template.Template
	text *texttemplate.Template
}

// LoadTemplates parses the built-in templates, overridden by files of the
// same name in dir when one is given.
func LoadTemplates(dir string) (*Templates, error) {
	htmlTmpl, err := template.ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse embedded templates")
	}
	textTmpl, err := texttemplate.ParseFS(defaultTemplates, "templates/paste.sh")
	if err != nil {
		return nil, errors.Wrap(err, "parse embedded paste.sh")
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrap(err, "read template dir")
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			switch {
			case filepath.Ext(entry.Name()) == ".html":
				if htmlTmpl, err = htmlTmpl.ParseFiles(path); err != nil {
					return nil, errors.Wrapf(err, "parse %s", path)
				}
			case entry.Name() == "paste.sh":
				if textTmpl, err = textTmpl.ParseFiles(path); err != nil {
					return nil, errors.Wrapf(err, "parse %s", path)
				}
			}
		}
	}
	return &Templates{html: htmlTmpl, text: textTmpl}, nil
}

// Render executes a template into a buffer first so a mid-render failure
// never leaks a half-written 200 response.
func (t *Templates) Render(w io.Writer, name string, data interface{}) error {
	var buf bytes.Buffer
	var err error
	if name == "paste.sh" {
		err = t.text.ExecuteTemplate(&buf, name, data)
	} else {
		err = t.html.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return errors.Wrapf(err, "render %s", name)
	}
	_, err = buf.WriteTo(w)
	return err
}
