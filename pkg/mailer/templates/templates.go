package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// Template names. Each has <name>.subject.tmpl, <name>.text.tmpl and
// <name>.html.tmpl in FS.
const (
	PasswordReset  = "password_reset"
	AccountDeleted = "account_deleted"
)

// EmailData defines the fields available to every email template.
type EmailData struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
	Type  string `json:"Type"`

	AppName        string `json:"AppName"`
	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	SupportURL     string `json:"SupportURL"`
	RegisterURL    string `json:"RegisterURL"`

	ResetURL      string    `json:"ResetURL"`
	ExpiresAt     time.Time `json:"ExpiresAt"`
	ExpiresAtText string    `json:"ExpiresAtText"`
	InactiveDays  int       `json:"InactiveDays"`
}

// ToMap converts EmailData to the map form carried by queued email jobs.
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback, value any) any {
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.IsZero() {
		return fallback
	}
	return value
}

func funcs() map[string]any {
	return map[string]any{
		"upper":   strings.ToUpper,
		"default": defaultFn,
	}
}

// set is one parsed template triple.
type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*set{}
)

func load(name string) (*set, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[name]; ok {
		return s, nil
	}

	parseText := func(file string) (*texttpl.Template, error) {
		t, err := texttpl.New(file).Funcs(funcs()).ParseFS(FS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", file, err)
		}
		return t, nil
	}
	subject, err := parseText(name + ".subject.tmpl")
	if err != nil {
		return nil, err
	}
	text, err := parseText(name + ".text.tmpl")
	if err != nil {
		return nil, err
	}
	htmlFile := name + ".html.tmpl"
	html, err := htmpl.New(htmlFile).Funcs(funcs()).ParseFS(FS, htmlFile)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", htmlFile, err)
	}

	s := &set{subject: subject, text: text, html: html}
	cache[name] = s
	return s, nil
}

func execute(name string, exec func(*bytes.Buffer) error) (string, error) {
	var buf bytes.Buffer
	if err := exec(&buf); err != nil {
		return "", fmt.Errorf("exec %q: %w", name, err)
	}
	return buf.String(), nil
}

// Render renders the subject, text and html bodies of template name. data is
// an EmailData or its ToMap form.
func Render(name string, data any) (subject, text, html string, err error) {
	s, err := load(name)
	if err != nil {
		return "", "", "", err
	}
	if subject, err = execute(name+".subject", func(b *bytes.Buffer) error { return s.subject.Execute(b, data) }); err != nil {
		return "", "", "", err
	}
	if text, err = execute(name+".text", func(b *bytes.Buffer) error { return s.text.Execute(b, data) }); err != nil {
		return "", "", "", err
	}
	if html, err = execute(name+".html", func(b *bytes.Buffer) error { return s.html.Execute(b, data) }); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
