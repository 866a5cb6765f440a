// Package catalog holds the fixed answer sets of the survey: the six rankable
// topics, the action choices and the visiting-with options.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TopicCount is the number of topics a visitor ranks.
const TopicCount = 6

//go:embed default.yaml
var defaultYAML []byte

type Option struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

type Catalog struct {
	Topics       []Option `yaml:"topics" json:"topics"`
	Actions      []Option `yaml:"actions" json:"actions"`
	VisitingWith []string `yaml:"visitingWith" json:"visitingWith"`

	topicLabels map[string]string
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.topicLabels = make(map[string]string, len(c.Topics))
	for _, t := range c.Topics {
		c.topicLabels[t.Key] = t.Label
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Topics) != TopicCount {
		return fmt.Errorf("catalog: want %d topics, got %d", TopicCount, len(c.Topics))
	}
	if err := uniqueKeys("topic", c.Topics); err != nil {
		return err
	}
	if err := uniqueKeys("action", c.Actions); err != nil {
		return err
	}
	if len(c.VisitingWith) == 0 {
		return errors.New("catalog: visitingWith is empty")
	}
	return nil
}

func uniqueKeys(kind string, opts []Option) error {
	seen := map[string]bool{}
	for _, o := range opts {
		k := strings.TrimSpace(o.Key)
		if k == "" {
			return fmt.Errorf("catalog: %s with empty key", kind)
		}
		if seen[k] {
			return fmt.Errorf("catalog: duplicate %s %q", kind, k)
		}
		seen[k] = true
	}
	return nil
}

func (c *Catalog) HasTopic(key string) bool {
	_, ok := c.topicLabels[key]
	return ok
}

// TopicLabel returns the display label for key; unknown keys are returned unchanged.
func (c *Catalog) TopicLabel(key string) string {
	if l, ok := c.topicLabels[key]; ok && l != "" {
		return l
	}
	return key
}

func (c *Catalog) HasVisitingWith(v string) bool {
	for _, o := range c.VisitingWith {
		if o == v {
			return true
		}
	}
	return false
}

// CheckRanking reports whether ranking is a permutation of the catalog topics.
func (c *Catalog) CheckRanking(ranking []string) error {
	if len(ranking) != TopicCount {
		return fmt.Errorf("ranking must list %d topics, got %d", TopicCount, len(ranking))
	}
	seen := map[string]bool{}
	for _, k := range ranking {
		if !c.HasTopic(k) {
			return fmt.Errorf("unknown topic %q", k)
		}
		if seen[k] {
			return fmt.Errorf("topic %q ranked twice", k)
		}
		seen[k] = true
	}
	return nil
}
