package fetch

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"news-fetcher/internal/domain/entity"
)

//go:embed demo_datasets.yaml
var builtinDemoData []byte

// DemoArticle is one entry of a demonstration dataset.
type DemoArticle struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	URL         string        `yaml:"url"`
	SourceName  string        `yaml:"source_name"`
	Age         time.Duration `yaml:"age"`
}

// DemoData maps lowercase category names to fixed articles.
type DemoData struct {
	Default  string                   `yaml:"default"`
	Datasets map[string][]DemoArticle `yaml:"datasets"`
}

// ParseDemoData decodes and checks a YAML dataset document.
func ParseDemoData(b []byte) (*DemoData, error) {
	var d DemoData
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("ParseDemoData: Unmarshal: %w", err)
	}

	normalized := make(map[string][]DemoArticle, len(d.Datasets))
	for name, articles := range d.Datasets {
		normalized[entity.CategoryKey(name)] = articles
	}
	d.Datasets = normalized
	d.Default = entity.CategoryKey(d.Default)

	if len(d.Datasets) == 0 {
		return nil, errors.New("ParseDemoData: no datasets defined")
	}
	if _, ok := d.Datasets[d.Default]; !ok {
		return nil, fmt.Errorf("ParseDemoData: default dataset %q not defined", d.Default)
	}
	return &d, nil
}

// BuiltinDemoData returns the datasets compiled into the binary.
func BuiltinDemoData() *DemoData {
	d, err := ParseDemoData(builtinDemoData)
	if err != nil {
		panic(err)
	}
	return d
}

// LoadDemoData reads datasets from path, or the built-in datasets when path is empty.
func LoadDemoData(path string) (*DemoData, error) {
	if path == "" {
		return BuiltinDemoData(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadDemoData: %w", err)
	}
	return ParseDemoData(b)
}

// Items returns the dataset for category, or the default dataset when the
// category is unknown. Lookup ignores case and surrounding space.
func (d *DemoData) Items(category string, now time.Time) []*entity.NewsItem {
	articles := d.Datasets[d.Default]
	if d.Has(category) {
		articles = d.Datasets[entity.CategoryKey(category)]
	}

	items := make([]*entity.NewsItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, entity.NewNewsItem(
			a.Title, a.Description, a.URL, a.SourceName, now.Add(-a.Age), now))
	}
	return items
}

// Has reports whether category has its own dataset.
func (d *DemoData) Has(category string) bool {
	_, ok := d.Datasets[entity.CategoryKey(category)]
	return ok
}
