// Package content serves blog posts and case studies from the headless
// content backend, falling back to built-in sample content when the backend
// is not configured, fails, or has nothing to show.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/cache"

	"futurion/internal/pkg/async"
)

// ErrNotFound is returned when no document has the requested slug.
var ErrNotFound = errors.New("content: not found")

var (
	errUnconfigured = errors.New("content: store not configured")
	errEmpty        = errors.New("content: empty result")
)

const (
	keySep = "\x1f"

	imageWidth  = 500
	imageHeight = 300
)

// Options configures a Catalog.
type Options struct {
	Store Store
	// TTL is how long query results are cached.
	TTL time.Duration
	// Timeout bounds a single backend query.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Blog is the blog index.
type Blog struct {
	Posts      []Post     `json:"posts"`
	Categories []Category `json:"categories"`
}

// Catalog answers content queries through a cache.
type Catalog struct {
	store    Store
	cache    *cache.Cache[string, json.RawMessage]
	fixtures *Fixtures
	pool     *async.Pool
	timeout  time.Duration
	logger   *slog.Logger
}

// imageHost is implemented by stores that can resolve image assets.
type imageHost interface {
	ProjectID() string
	Dataset() string
}

func NewCatalog(opts Options) (*Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fixtures, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Catalog{
		store:    opts.Store,
		fixtures: fixtures,
		pool:     async.NewPool(2),
		timeout:  timeout,
		logger:   logger,
	}
	c.cache = cache.NewCache[string, json.RawMessage](logger, opts.TTL, c.fetch)
	return c, nil
}

// fetch is the cache miss path; keys are the query name and slug.
func (c *Catalog) fetch(key string) (json.RawMessage, error) {
	name, slug, _ := strings.Cut(key, keySep)
	query, ok := queries[name]
	if !ok {
		return nil, errors.New("content: unknown query " + name)
	}

	var params map[string]string
	if slug != "" {
		params = map[string]string{"slug": slug}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.store.Query(ctx, query, params)
}

func (c *Catalog) configured() bool {
	return c.store != nil && c.store.Configured()
}

// load runs a named query and decodes the result into out.
func (c *Catalog) load(ctx context.Context, name, slug string, out any) error {
	if !c.configured() {
		return errUnconfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := c.cache.Get(name + keySep + slug)
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "[]" {
		return errEmpty
	}
	return json.Unmarshal(raw, out)
}

func (c *Catalog) fallback(query string, err error) {
	switch {
	case errors.Is(err, errUnconfigured):
		c.logger.Debug("content store not configured, serving sample content", slog.String("query", query))
	case errors.Is(err, errEmpty):
		c.logger.Info("content store returned no documents, serving sample content", slog.String("query", query))
	default:
		c.logger.Warn("content query failed, serving sample content",
			slog.String("query", query),
			slog.Any("error", err),
		)
	}
}

// Invalidate drops every cached query result.
func (c *Catalog) Invalidate() {
	c.cache.Clear()
}

// Posts returns every post, newest first.
func (c *Catalog) Posts(ctx context.Context) []Post {
	var posts []Post
	if err := c.load(ctx, "posts", "", &posts); err != nil {
		c.fallback("posts", err)
		posts = c.fixtures.Posts
	}
	return c.decoratePosts(posts)
}

// PostsByCategory returns the posts filed under the category slug. An
// empty slug returns every post.
func (c *Catalog) PostsByCategory(ctx context.Context, category string) []Post {
	category = NormalizeSlug(category)
	if category == "" {
		return c.Posts(ctx)
	}

	var posts []Post
	if err := c.load(ctx, "posts_by_category", category, &posts); err != nil {
		c.fallback("posts_by_category", err)
		posts = c.fixtures.postsInCategory(category)
	}
	return c.decoratePosts(posts)
}

func (c *Catalog) Categories(ctx context.Context) []Category {
	var categories []Category
	if err := c.load(ctx, "categories", "", &categories); err != nil {
		c.fallback("categories", err)
		categories = c.fixtures.Categories
	}
	return append([]Category{}, categories...)
}

// Blog fetches posts and categories concurrently.
func (c *Catalog) Blog(ctx context.Context) Blog {
	results := c.pool.Execute(ctx, []async.Task{
		{Name: "posts", Execute: func(ctx context.Context) (any, error) { return c.Posts(ctx), nil }},
		{Name: "categories", Execute: func(ctx context.Context) (any, error) { return c.Categories(ctx), nil }},
	})

	posts, ok := results["posts"].Data.([]Post)
	if !ok {
		posts = c.decoratePosts(c.fixtures.Posts)
	}
	categories, ok := results["categories"].Data.([]Category)
	if !ok {
		categories = append([]Category{}, c.fixtures.Categories...)
	}
	return Blog{Posts: posts, Categories: categories}
}

// Post returns the post with the slug and up to three posts sharing one of
// its categories.
func (c *Catalog) Post(ctx context.Context, slug string) (*Post, []Post, error) {
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, nil, ErrNotFound
	}

	results := c.pool.Execute(ctx, []async.Task{
		{Name: "post", Execute: func(ctx context.Context) (any, error) {
			var post *Post
			err := c.load(ctx, "post", slug, &post)
			return post, err
		}},
		{Name: "related", Execute: func(ctx context.Context) (any, error) {
			var related []Post
			err := c.load(ctx, "related_posts", slug, &related)
			return related, err
		}},
	})

	postResult := results["post"]
	post, _ := postResult.Data.(*Post)
	switch {
	case errors.Is(postResult.Err, errEmpty):
		return nil, nil, ErrNotFound
	case postResult.Err != nil || post == nil:
		c.fallback("post", postResult.Err)
		fixture, related := c.fixtures.post(slug)
		if fixture == nil {
			return nil, nil, ErrNotFound
		}
		c.decoratePost(fixture)
		return fixture, c.decoratePosts(related), nil
	}

	related, _ := results["related"].Data.([]Post)
	if err := results["related"].Err; err != nil && !errors.Is(err, errEmpty) {
		c.logger.Warn("related posts query failed", slog.String("slug", slug), slog.Any("error", err))
	}
	c.decoratePost(post)
	return post, c.decoratePosts(related), nil
}

// CaseStudies returns every case study, newest first.
func (c *Catalog) CaseStudies(ctx context.Context) []CaseStudy {
	var studies []CaseStudy
	if err := c.load(ctx, "case_studies", "", &studies); err != nil {
		c.fallback("case_studies", err)
		studies = c.fixtures.CaseStudies
	}
	return c.decorateCaseStudies(studies)
}

// FeaturedCaseStudies returns the three case studies shown on the home
// page: featured ones first, then the newest.
func (c *Catalog) FeaturedCaseStudies(ctx context.Context) []CaseStudy {
	var studies []CaseStudy
	if err := c.load(ctx, "featured_case_studies", "", &studies); err != nil {
		c.fallback("featured_case_studies", err)
		studies = c.fixtures.featuredCaseStudies()
	}
	return c.decorateCaseStudies(studies)
}

// CaseStudy returns the case study with the slug and up to three others in
// the same category.
func (c *Catalog) CaseStudy(ctx context.Context, slug string) (*CaseStudy, []CaseStudy, error) {
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, nil, ErrNotFound
	}

	results := c.pool.Execute(ctx, []async.Task{
		{Name: "case_study", Execute: func(ctx context.Context) (any, error) {
			var study *CaseStudy
			err := c.load(ctx, "case_study", slug, &study)
			return study, err
		}},
		{Name: "related", Execute: func(ctx context.Context) (any, error) {
			var related []CaseStudy
			err := c.load(ctx, "related_case_studies", slug, &related)
			return related, err
		}},
	})

	studyResult := results["case_study"]
	study, _ := studyResult.Data.(*CaseStudy)
	switch {
	case errors.Is(studyResult.Err, errEmpty):
		return nil, nil, ErrNotFound
	case studyResult.Err != nil || study == nil:
		c.fallback("case_study", studyResult.Err)
		fixture, related := c.fixtures.caseStudy(slug)
		if fixture == nil {
			return nil, nil, ErrNotFound
		}
		c.decorateCaseStudy(fixture)
		return fixture, c.decorateCaseStudies(related), nil
	}

	related, _ := results["related"].Data.([]CaseStudy)
	if err := results["related"].Err; err != nil && !errors.Is(err, errEmpty) {
		c.logger.Warn("related case studies query failed", slog.String("slug", slug), slog.Any("error", err))
	}
	c.decorateCaseStudy(study)
	return study, c.decorateCaseStudies(related), nil
}

func (c *Catalog) imageURL(img *Image) string {
	var projectID, dataset string
	if host, ok := c.store.(imageHost); ok && c.configured() {
		projectID, dataset = host.ProjectID(), host.Dataset()
	}
	return ImageURL(projectID, dataset, img, imageWidth, imageHeight)
}

func (c *Catalog) decoratePost(p *Post) {
	p.ImageURL = c.imageURL(p.MainImage)
}

// decoratePosts returns a copy of posts with derived fields set.
func (c *Catalog) decoratePosts(posts []Post) []Post {
	out := make([]Post, len(posts))
	copy(out, posts)
	for i := range out {
		c.decoratePost(&out[i])
	}
	return out
}

func (c *Catalog) decorateCaseStudy(cs *CaseStudy) {
	cs.ImageURL = c.imageURL(cs.Image)
	cs.CategoryLabel = CategoryLabel(cs.Category)
}

func (c *Catalog) decorateCaseStudies(studies []CaseStudy) []CaseStudy {
	out := make([]CaseStudy, len(studies))
	copy(out, studies)
	for i := range out {
		c.decorateCaseStudy(&out[i])
	}
	return out
}

// Live reports whether queries go to the content backend rather than the
// sample content.
func (c *Catalog) Live() bool {
	return c.configured()
}
