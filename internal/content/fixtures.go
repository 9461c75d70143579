package content

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Fixtures is the built-in sample content.
type Fixtures struct {
	Posts       []Post      `yaml:"posts"`
	Categories  []Category  `yaml:"categories"`
	CaseStudies []CaseStudy `yaml:"caseStudies"`
}

// LoadFixtures parses the embedded sample content.
func LoadFixtures() (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(fixturesYAML, &f); err != nil {
		return nil, fmt.Errorf("content: parse fixtures: %w", err)
	}
	sort.SliceStable(f.Posts, func(i, j int) bool {
		return f.Posts[i].PublishedAt.After(f.Posts[j].PublishedAt)
	})
	sort.SliceStable(f.CaseStudies, func(i, j int) bool {
		return f.CaseStudies[i].PublishedAt.After(f.CaseStudies[j].PublishedAt)
	})
	return &f, nil
}

func (f *Fixtures) postsInCategory(slug string) []Post {
	var out []Post
	for _, p := range f.Posts {
		if p.InCategory(slug) {
			out = append(out, p)
		}
	}
	return out
}

func (f *Fixtures) post(slug string) (*Post, []Post) {
	var found *Post
	for i := range f.Posts {
		if f.Posts[i].Slug.Current == slug {
			found = &f.Posts[i]
			break
		}
	}
	if found == nil {
		return nil, nil
	}

	var related []Post
	for _, p := range f.Posts {
		if len(related) == relatedLimit {
			break
		}
		if p.Slug.Current == slug {
			continue
		}
		for _, c := range found.Categories {
			if p.InCategory(c.Slug.Current) {
				related = append(related, p)
				break
			}
		}
	}
	cp := *found
	return &cp, related
}

func (f *Fixtures) featuredCaseStudies() []CaseStudy {
	out := append([]CaseStudy(nil), f.CaseStudies...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > relatedLimit {
		out = out[:relatedLimit]
	}
	return out
}

func (f *Fixtures) caseStudy(slug string) (*CaseStudy, []CaseStudy) {
	var found *CaseStudy
	for i := range f.CaseStudies {
		if f.CaseStudies[i].Slug.Current == slug {
			found = &f.CaseStudies[i]
			break
		}
	}
	if found == nil {
		return nil, nil
	}

	var related []CaseStudy
	for _, cs := range f.CaseStudies {
		if len(related) == relatedLimit {
			break
		}
		if cs.Slug.Current != slug && cs.Category == found.Category {
			related = append(related, cs)
		}
	}
	cp := *found
	return &cp, related
}
