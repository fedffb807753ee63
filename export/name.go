package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"sbadm/config"
	"sbadm/entity"
)

const defaultName = "storybook"

// Values are variables available to output name template.
type Values struct {
	Title  string
	ID     string
	Pages  int
	Reader string
}

func expandTemplate(field string, v Values) (string, error) {
	tmpl, err := template.New(string(config.OutputNameTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", config.OutputNameTemplateFieldName, err)
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FileName derives PDF file name from storybook title using configured
// template. It never returns empty name.
func FileName(book *entity.Storybook, cfg *config.ExportConfig, log *zap.Logger) string {
	v := Values{Title: strings.TrimSpace(book.Title), ID: book.ID, Pages: len(book.Pages), Reader: book.ReaderName}

	name := v.Title
	if cfg != nil && cfg.OutputNameTemplate != "" {
		expanded, err := expandTemplate(cfg.OutputNameTemplate, v)
		switch {
		case err == nil:
			name = expanded
		case log != nil:
			log.Warn("Unable to prepare output filename", zap.Error(err))
		}
	}
	// name is a single file, never a path
	name = strings.TrimSpace(strings.ReplaceAll(filepath.ToSlash(name), "/", " "))
	if cfg != nil && cfg.FileNameTransliterate {
		name = slug.Make(name)
	}
	if strings.Trim(name, "._- ") == "" {
		name = defaultName
		if book.ID != "" {
			name += "-" + book.ID
		}
	}
	return config.CleanFileName(name) + ".pdf"
}
