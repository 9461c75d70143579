package content

import "time"

// Slug is a document slug as stored by the content backend.
type Slug struct {
	Current string `json:"current" yaml:"current"`
}

// Reference points at another document or asset.
type Reference struct {
	Ref  string `json:"_ref" yaml:"_ref"`
	Type string `json:"_type,omitempty" yaml:"_type,omitempty"`
}

// Image is an image field with an asset reference.
type Image struct {
	Type  string     `json:"_type,omitempty" yaml:"_type,omitempty"`
	Asset *Reference `json:"asset,omitempty" yaml:"asset,omitempty"`
	Alt   string     `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// Ref returns the asset reference, or "" when there is none.
func (i *Image) Ref() string {
	if i == nil || i.Asset == nil {
		return ""
	}
	return i.Asset.Ref
}

type Author struct {
	Name  string `json:"name" yaml:"name"`
	Image *Image `json:"image,omitempty" yaml:"image,omitempty"`
	Bio   []any  `json:"bio,omitempty" yaml:"bio,omitempty"`
}

type Category struct {
	ID    string `json:"_id,omitempty" yaml:"_id,omitempty"`
	Title string `json:"title" yaml:"title"`
	Slug  Slug   `json:"slug" yaml:"slug"`
}

// Post is a blog post. Body holds portable text blocks and is passed
// through untouched.
type Post struct {
	ID          string     `json:"_id" yaml:"_id"`
	Title       string     `json:"title" yaml:"title"`
	Slug        Slug       `json:"slug" yaml:"slug"`
	Excerpt     string     `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	MainImage   *Image     `json:"mainImage,omitempty" yaml:"mainImage,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty" yaml:"-"`
	PublishedAt time.Time  `json:"publishedAt" yaml:"publishedAt"`
	Author      *Author    `json:"author,omitempty" yaml:"author,omitempty"`
	Categories  []Category `json:"categories,omitempty" yaml:"categories,omitempty"`
	Body        []any      `json:"body,omitempty" yaml:"body,omitempty"`
}

// InCategory reports whether the post is filed under the category slug.
func (p Post) InCategory(slug string) bool {
	for _, c := range p.Categories {
		if c.Slug.Current == slug {
			return true
		}
	}
	return false
}

type CaseStudy struct {
	ID            string    `json:"_id" yaml:"_id"`
	Title         string    `json:"title" yaml:"title"`
	Slug          Slug      `json:"slug" yaml:"slug"`
	Category      string    `json:"category" yaml:"category"`
	CategoryLabel string    `json:"categoryLabel,omitempty" yaml:"-"`
	Excerpt       string    `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Image         *Image    `json:"image,omitempty" yaml:"image,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty" yaml:"-"`
	Client        string    `json:"client,omitempty" yaml:"client,omitempty"`
	Industry      string    `json:"industry,omitempty" yaml:"industry,omitempty"`
	Body          []any     `json:"body,omitempty" yaml:"body,omitempty"`
	Technologies  []string  `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Duration      string    `json:"duration,omitempty" yaml:"duration,omitempty"`
	Link          string    `json:"link,omitempty" yaml:"link,omitempty"`
	Color         string    `json:"color,omitempty" yaml:"color,omitempty"`
	PublishedAt   time.Time `json:"publishedAt" yaml:"publishedAt"`
	Featured      bool      `json:"featured,omitempty" yaml:"featured,omitempty"`
}
