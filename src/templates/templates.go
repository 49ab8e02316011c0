/*
Package templates holds the HTML email templates. They are embedded in the
binary and parsed once at startup, each one together with the shared layout.
*/
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/utils"
)

//go:embed src
var embeddedTemplateFs embed.FS
var embeddedTemplates map[string]*template.Template

func init() {
	var errs map[string]error
	embeddedTemplates, errs = getTemplatesFromFS(embeddedTemplateFs)
	if len(errs) > 0 {
		var names []string
		for name := range errs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			logging.Error().Str("filename", name).Err(errs[name]).Msg("Failed to parse template")
		}
		panic("Failed to parse templates; see above")
	}
}

func getTemplatesFromFS(templateFS fs.ReadDirFS) (map[string]*template.Template, map[string]error) {
	templates := make(map[string]*template.Template)
	errs := make(map[string]error)

	files := utils.Must1(templateFS.ReadDir("src"))
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".html") {
			continue
		}
		t := template.New(f.Name())
		t = t.Funcs(sprig.FuncMap())
		t = t.Funcs(NewsdeskTemplateFuncs)
		t, err := t.ParseFS(templateFS,
			"src/layouts/*",
			"src/"+f.Name(),
		)
		if err != nil {
			errs[f.Name()] = err
			continue
		}
		templates[f.Name()] = t
	}

	return templates, errs
}

func GetTemplate(name string) (*template.Template, error) {
	t, ok := embeddedTemplates[name]
	if !ok {
		return nil, oops.New(nil, "template not found: %s", name)
	}
	return t, nil
}

// Names lists every template, for the CLI and for tests.
func Names() []string {
	var result []string
	for name := range embeddedTemplates {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

var NewsdeskTemplateFuncs = template.FuncMap{
	"absolutedate": func(t time.Time) string {
		return t.UTC().Format("January 2, 2006, 3:04pm")
	},
	"rfc3339": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"minutesuntil": func(from, to time.Time) int {
		return int(to.Sub(from).Round(time.Minute) / time.Minute)
	},
	"hoursuntil": func(from, to time.Time) int {
		return int(to.Sub(from).Round(time.Hour) / time.Hour)
	},
	"paragraphs": func(s string) template.HTML {
		var b strings.Builder
		for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			escaped := template.HTMLEscapeString(p)
			fmt.Fprintf(&b, "<p>%s</p>", strings.ReplaceAll(escaped, "\n", "<br>"))
		}
		return template.HTML(b.String())
	},
}
