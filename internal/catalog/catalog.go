// Package catalog holds the dashboard's fixed reference tables: the ordered
// line catalog with badge colours, the issue-type catalog and the alert-icon
// catalog.
//
// A Catalog is loaded once at startup and passed explicitly to the
// components that need it. It is immutable after construction; every
// accessor returns copies.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/delayboard/internal/model"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Line is one entry of the line catalog.
type Line struct {
	Code     string `yaml:"code"`
	Color    string `yaml:"color"`
	DarkText bool   `yaml:"dark_text"`
}

// IssueType describes how a report category is presented.
type IssueType struct {
	Value model.IssueType `yaml:"value"`
	Label string          `yaml:"label"`
	Icon  string          `yaml:"icon"`
}

// AlertType describes how an alert category is presented.
type AlertType struct {
	Value model.AlertType `yaml:"value"`
	Icon  string          `yaml:"icon"`
}

type file struct {
	Lines            []Line          `yaml:"lines"`
	DefaultIssueType model.IssueType `yaml:"default_issue_type"`
	IssueTypes       []IssueType     `yaml:"issue_types"`
	AlertTypes       []AlertType     `yaml:"alert_types"`
}

// fallbackColor is used for lines the catalog does not know.
const fallbackColor = "#555555"

// Catalog is the immutable set of reference tables.
type Catalog struct {
	lines        []Line
	index        map[string]int
	defaultIssue model.IssueType
	issues       []IssueType
	alertIcons   map[model.AlertType]string
}

// Default returns the built-in catalog. It panics only if the embedded
// table is broken, which is a build defect.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded table invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return build(f)
}

func build(f file) (*Catalog, error) {
	if len(f.Lines) == 0 {
		return nil, fmt.Errorf("catalog has no lines")
	}

	c := &Catalog{
		lines:      make([]Line, len(f.Lines)),
		index:      make(map[string]int, len(f.Lines)),
		issues:     make([]IssueType, len(f.IssueTypes)),
		alertIcons: make(map[model.AlertType]string, len(f.AlertTypes)),
	}
	copy(c.lines, f.Lines)
	copy(c.issues, f.IssueTypes)

	for i, l := range c.lines {
		if l.Code == "" {
			return nil, fmt.Errorf("line %d has no code", i)
		}
		if _, dup := c.index[l.Code]; dup {
			return nil, fmt.Errorf("duplicate line code %q", l.Code)
		}
		c.index[l.Code] = i
	}

	seen := make(map[model.IssueType]bool, len(c.issues))
	for _, it := range c.issues {
		if !it.Value.Valid() {
			return nil, fmt.Errorf("unknown issue type %q", it.Value)
		}
		if seen[it.Value] {
			return nil, fmt.Errorf("duplicate issue type %q", it.Value)
		}
		seen[it.Value] = true
	}

	c.defaultIssue = f.DefaultIssueType
	if c.defaultIssue == "" {
		c.defaultIssue = model.IssueMinorDelay
	}
	if !seen[c.defaultIssue] {
		return nil, fmt.Errorf("default issue type %q not in issue_types", c.defaultIssue)
	}

	for _, at := range f.AlertTypes {
		if !at.Value.Valid() {
			return nil, fmt.Errorf("unknown alert type %q", at.Value)
		}
		c.alertIcons[at.Value] = at.Icon
	}

	return c, nil
}

// Codes returns the line codes in catalog order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.lines))
	for i, l := range c.lines {
		codes[i] = l.Code
	}
	return codes
}

// Lines returns the line entries in catalog order.
func (c *Catalog) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of catalog lines.
func (c *Catalog) Len() int { return len(c.lines) }

// Line looks up a catalog entry by code.
func (c *Catalog) Line(code string) (Line, bool) {
	i, ok := c.index[code]
	if !ok {
		return Line{}, false
	}
	return c.lines[i], true
}

// Has reports whether code is in the catalog.
func (c *Catalog) Has(code string) bool {
	_, ok := c.index[code]
	return ok
}

// Color returns the badge colour for a line, or a neutral grey.
func (c *Catalog) Color(code string) string {
	if l, ok := c.Line(code); ok && l.Color != "" {
		return l.Color
	}
	return fallbackColor
}

// DefaultIssueType is the issue type a fresh report draft starts with.
func (c *Catalog) DefaultIssueType() model.IssueType { return c.defaultIssue }

// IssueTypes returns the issue catalog in presentation order.
func (c *Catalog) IssueTypes() []IssueType {
	out := make([]IssueType, len(c.issues))
	copy(out, c.issues)
	return out
}

// IssueLabel returns "icon label" for t, or the raw value if unknown.
func (c *Catalog) IssueLabel(t model.IssueType) string {
	for _, it := range c.issues {
		if it.Value == t {
			if it.Icon == "" {
				return it.Label
			}
			return it.Icon + " " + it.Label
		}
	}
	return string(t)
}

// AlertIcon returns the icon for t, falling back to the delay icon.
func (c *Catalog) AlertIcon(t model.AlertType) string {
	if icon, ok := c.alertIcons[t]; ok {
		return icon
	}
	return c.alertIcons[model.AlertDelay]
}
