package notification

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// ErrTemplateNotFound is returned when a template name is not registered.
var ErrTemplateNotFound = errors.Newf("template not found").
	Component("notification").
	Category(errors.CategoryNotFound).
	Build()

// ErrTemplateVariableMissing is returned when rendering is attempted without
// all of a template's required variables.
var ErrTemplateVariableMissing = errors.Newf("required template variable missing").
	Component("notification").
	Category(errors.CategoryTemplate).
	Build()

// Template describes a reusable notification shape. Title and Body are Go
// template sources evaluated against a flat variable map; Required lists
// the variables that must be present before rendering.
type Template struct {
	// Name identifies the template in the registry
	Name string
	// Category is assigned to notifications built from the template
	Category Category
	// Title is the title template source
	Title string
	// Body is the body template source
	Body string
	// Required lists variable names that must be supplied
	Required []string

	titleTmpl *template.Template
	bodyTmpl  *template.Template
}

// compile parses both template sources. Missing variables referenced at
// render time fail instead of printing "<no value>".
func (t *Template) compile() error {
	titleTmpl, err := template.New(t.Name + ".title").Option("missingkey=error").Parse(t.Title)
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryTemplate).
			Context("template", t.Name).
			Build()
	}
	bodyTmpl, err := template.New(t.Name + ".body").Option("missingkey=error").Parse(t.Body)
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryTemplate).
			Context("template", t.Name).
			Build()
	}
	t.titleTmpl, t.bodyTmpl = titleTmpl, bodyTmpl
	return nil
}

// Render evaluates the title and body against vars. All Required variables
// must be present; rendering fails listing every missing one rather than
// stopping at the first.
func (t *Template) Render(vars map[string]any) (title, body string, err error) {
	var missing []string
	for _, name := range t.Required {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", "", errors.Newf("template %q missing required variables %s: %w",
			t.Name, strings.Join(missing, ", "), ErrTemplateVariableMissing).
			Component("notification").
			Category(errors.CategoryTemplate).
			Context("template", t.Name).
			Context("missing", strings.Join(missing, ",")).
			Build()
	}

	if t.titleTmpl == nil || t.bodyTmpl == nil {
		if err := t.compile(); err != nil {
			return "", "", err
		}
	}

	var buf bytes.Buffer
	if err := t.titleTmpl.Execute(&buf, vars); err != nil {
		return "", "", renderError(t.Name, "title", err)
	}
	title = buf.String()

	buf.Reset()
	if err := t.bodyTmpl.Execute(&buf, vars); err != nil {
		return "", "", renderError(t.Name, "body", err)
	}
	return title, buf.String(), nil
}

func renderError(name, part string, err error) error {
	return errors.Newf("failed to render template %q %s: %w", name, part, err).
		Component("notification").
		Category(errors.CategoryTemplate).
		Context("template", name).
		Build()
}

// TemplateRegistry holds named templates. Registration is last-write-wins
// by name, matching the channel registry semantics.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateRegistry returns an empty registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[string]*Template)}
}

// DefaultTemplateRegistry returns a registry pre-populated with the
// built-in campus alert templates.
func DefaultTemplateRegistry() *TemplateRegistry {
	r := NewTemplateRegistry()
	for _, t := range builtinTemplates() {
		// Built-ins are static and parse by construction
		_ = r.Register(t)
	}
	return r
}

// Register compiles and stores a template under its name, replacing any
// previous registration.
func (r *TemplateRegistry) Register(t *Template) error {
	if t == nil || strings.TrimSpace(t.Name) == "" {
		return errors.Newf("template name is required").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := t.compile(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name] = t
	return nil
}

// Get returns the template registered under name.
func (r *TemplateRegistry) Get(name string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok {
		return nil, errors.Newf("template %q not found: %w", name, ErrTemplateNotFound).
			Component("notification").
			Category(errors.CategoryNotFound).
			Context("template", name).
			Build()
	}
	return t, nil
}

// Names returns all registered template names, sorted.
func (r *TemplateRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build renders the named template and wraps the output in a new
// notification request for the recipient.
func (r *TemplateRegistry) Build(name string, recipient *Recipient, vars map[string]any) (*Notification, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	title, body, err := t.Render(vars)
	if err != nil {
		return nil, err
	}
	return New(recipient, t.Category, title, body), nil
}

func builtinTemplates() []*Template {
	return []*Template{
		{
			Name:     "weather-alert",
			Category: CategoryWeather,
			Title:    "Weather alert: {{.condition}}",
			Body:     "{{.condition}} expected {{.when}}. {{.details}}",
			Required: []string{"condition", "when", "details"},
		},
		{
			Name:     "security-alert",
			Category: CategorySecurity,
			Title:    "Security alert: {{.incident}}",
			Body:     "{{.incident}} reported at {{.location}}. {{.instructions}}",
			Required: []string{"incident", "location", "instructions"},
		},
		{
			Name:     "health-alert",
			Category: CategoryHealth,
			Title:    "Health alert: {{.advisory}}",
			Body:     "{{.advisory}}. {{.instructions}}",
			Required: []string{"advisory", "instructions"},
		},
		{
			Name:     "infrastructure-alert",
			Category: CategoryInfrastructure,
			Title:    "Service disruption: {{.service}}",
			Body:     "{{.service}} is currently unavailable. {{.details}}",
			Required: []string{"service", "details"},
		},
		{
			Name:     "academic-notice",
			Category: CategoryAcademic,
			Title:    "{{.subject}}",
			Body:     "{{.message}}",
			Required: []string{"subject", "message"},
		},
	}
}
