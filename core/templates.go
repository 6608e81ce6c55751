package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

var (
	templates     map[string]tmplCache // {dir: cache}
	templatesLock sync.Mutex
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: tmplCacheEntry}
)

// getTemplates lazily parses and caches the templates under assets/templates/<dir>.
// Files are keyed by base name without extension; ".txt" files are parsed as
// text templates and ".gohtml" files as html templates. Files prefixed with "_"
// are treated as shared bases and parsed together with every sibling.
func getTemplates(conf *Config, dir string) tmplCache {
	templatesLock.Lock()
	defer templatesLock.Unlock()

	if templates == nil {
		templates = make(map[string]tmplCache)
	}
	if cache, ok := templates[dir]; ok {
		return cache
	}

	cache := make(tmplCache)
	rp := filepath.Join(conf.WorkDir, "assets", "templates", dir)
	fps, err := filepath.Glob(filepath.Join(rp, "*"))
	if err != nil {
		log.Print(fmt.Errorf("core.getTemplates: %v", err))
	}

	for _, fp := range fps {
		fname := filepath.Base(fp)
		ext := filepath.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := fname[:strings.LastIndex(fname, ".")]
		entry, ok := cache[name]
		if !ok {
			cache[name] = make(tmplCacheEntry)
			entry = cache[name]
		}

		base := filepath.Join(rp, "_base"+ext)
		if _, err := os.Stat(base); err != nil {
			base = ""
		}
		if ext == ".txt" {
			tmpl, err := parseTextTemplate(base, fp)
			if err != nil {
				log.Print(fmt.Errorf("core.getTemplates: %v", err))
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := parseHTMLTemplate(base, fp)
			if err != nil {
				log.Print(fmt.Errorf("core.getTemplates: %v", err))
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}

	templates[dir] = cache
	return cache
}

func parseTextTemplate(base, fp string) (*texttmpl.Template, error) {
	if base != "" {
		return texttmpl.ParseFiles(base, fp)
	}
	return texttmpl.ParseFiles(fp)
}

func parseHTMLTemplate(base, fp string) (*htmltmpl.Template, error) {
	if base != "" {
		return htmltmpl.ParseFiles(base, fp)
	}
	return htmltmpl.ParseFiles(fp)
}

// RenderHTMLTemplate executes the named ".gohtml" template under
// assets/templates/<dir> and returns the resulting markup.
func RenderHTMLTemplate(conf *Config, dir, name string, data interface{}) (string, error) {
	entry, ok := getTemplates(conf, dir)[name]
	if !ok {
		return "", errors.Errorf("template %s/%s not found", dir, name)
	}
	tmpl, ok := entry[".gohtml"].(*htmltmpl.Template)
	if !ok {
		return "", errors.Errorf("template %s/%s.gohtml not found", dir, name)
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, data); err != nil {
		return "", errors.Wrapf(err, "executing template %s/%s", dir, name)
	}
	return buff.String(), nil
}
