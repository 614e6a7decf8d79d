package manifest

// Selection identifies one template a user picked for composition.
type Selection struct {
	// TemplateRoot is the library directory holding templates laid out
	// as <root>/<sdk>/<template>/template.json.
	TemplateRoot string `json:"templateRoot"`
	SDK          string `json:"sdk"`
	Name         string `json:"templateName"`
}

// Key returns the "<sdk>/<name>" identity string used in caches and reports.
func (s Selection) Key() string {
	return s.SDK + "/" + s.Name
}

// Template is a fully validated manifest. It is immutable once loaded;
// downstream components rely on every field being present and well-typed,
// so there are no optional-existence checks past this point.
type Template struct {
	SDK         string
	Name        string
	DisplayName string
	Description string

	// Packages and DevPackages keep manifest-declaration order. Merge
	// output depends on that order being stable.
	Packages    []Package
	DevPackages []Package

	// EnvVars keep declaration order for .env.example generation.
	EnvVars []EnvVar

	// Files are the source → destination copy pairs, sorted by source
	// path so materialization order is reproducible.
	Files []FileMapping

	Docs    Docs
	Tags    []string
	Visible bool

	// Root is the absolute template directory all Files sources resolve
	// against. Two templates may carry same-named sources that mean
	// different things, so this is never shared.
	Root string
}

// Key returns the "<sdk>/<name>" identity string.
func (t *Template) Key() string {
	return t.SDK + "/" + t.Name
}

// Package is one declared direct dependency: an npm package name and a
// semver range such as "^18.2.0".
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// EnvVar is one environment variable a template requires or suggests.
type EnvVar struct {
	Name        string `json:"name" yaml:"name"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// FileMapping maps a source path under the template root to a destination
// path under the target project root. Both are slash-separated relative
// paths; the destination may contain {{variable}} placeholders.
type FileMapping struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// Docs holds the documentation fragments a template contributes to the
// generated setup guide. All fields are optional; empty fields are never
// rendered.
type Docs struct {
	Setup           string   `json:"setup,omitempty" yaml:"setup,omitempty"`
	Installation    string   `json:"installation,omitempty" yaml:"installation,omitempty"`
	Configuration   string   `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	Usage           string   `json:"usage,omitempty" yaml:"usage,omitempty"`
	Troubleshooting string   `json:"troubleshooting,omitempty" yaml:"troubleshooting,omitempty"`
	Examples        []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Empty reports whether no documentation fragment is present.
func (d Docs) Empty() bool {
	return d.Setup == "" && d.Installation == "" && d.Configuration == "" &&
		d.Usage == "" && d.Troubleshooting == "" && len(d.Examples) == 0
}

// ManifestNames is the fallback order for finding a manifest file inside a
// template directory. JSON is the primary format; YAML is accepted with the
// identical schema.
var ManifestNames = []string{"template.json", "template.yaml"}
