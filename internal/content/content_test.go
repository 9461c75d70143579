package content

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend answers queries by matching a fragment of the GROQ text.
type fakeBackend struct {
	server  *httptest.Server
	hits    atomic.Int32
	answers map[string]string
	status  int
}

func newFakeBackend(t *testing.T, answers map[string]string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{answers: answers, status: http.StatusOK}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		if b.status != http.StatusOK {
			w.WriteHeader(b.status)
			_, _ = io.WriteString(w, `{"error":{"description":"backend down"}}`)
			return
		}
		query := r.URL.Query().Get("query")
		for fragment, result := range b.answers {
			if strings.Contains(query, fragment) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"result":`+result+`}`)
				return
			}
		}
		_, _ = io.WriteString(w, `{"result":null}`)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) store() *SanityStore {
	return NewSanityStore(SanityConfig{ProjectID: "abc123", BaseURL: b.server.URL, Timeout: 2 * time.Second}, quietLogger())
}

func newCatalog(t *testing.T, store Store) *Catalog {
	t.Helper()
	c, err := NewCatalog(Options{Store: store, TTL: time.Minute, Timeout: 2 * time.Second, Logger: quietLogger()})
	require.NoError(t, err)
	return c
}

func TestValidProjectID(t *testing.T) {
	assert.Equal(t, "abc-123", ValidProjectID("abc-123"))
	assert.Equal(t, FallbackProjectID, ValidProjectID("ABC"))
	assert.Equal(t, FallbackProjectID, ValidProjectID("abc_123"))
	assert.Equal(t, FallbackProjectID, ValidProjectID(""))
}

func TestSanityStoreQueryURL(t *testing.T) {
	store := NewSanityStore(SanityConfig{ProjectID: "abc123", UseCDN: true}, quietLogger())
	u := store.QueryURL(postQuery, map[string]string{"slug": "mi-post"})

	assert.True(t, strings.HasPrefix(u, "https://abc123.apicdn.sanity.io/v2024-01-01/data/query/production?"), u)
	assert.Contains(t, u, "%24slug=%22mi-post%22")

	direct := NewSanityStore(SanityConfig{ProjectID: "abc123", APIVersion: "v2023-05-03", Dataset: "staging"}, quietLogger())
	assert.True(t, strings.HasPrefix(direct.QueryURL(categoriesQuery, nil), "https://abc123.api.sanity.io/v2023-05-03/data/query/staging?"))
}

func TestSanityStoreInvalidProjectID(t *testing.T) {
	store := NewSanityStore(SanityConfig{ProjectID: "Not Valid"}, quietLogger())
	assert.True(t, store.Configured())
	assert.Equal(t, FallbackProjectID, store.ProjectID())

	assert.False(t, NewSanityStore(SanityConfig{}, quietLogger()).Configured())
}

func TestSanityStoreQueryError(t *testing.T) {
	backend := newFakeBackend(t, nil)
	backend.status = http.StatusBadRequest

	_, err := backend.store().Query(context.Background(), categoriesQuery, nil)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, http.StatusBadRequest, qerr.StatusCode)
	assert.Equal(t, "backend down", qerr.Message)
}

func TestCatalogUnconfiguredServesFixtures(t *testing.T) {
	c := newCatalog(t, NewSanityStore(SanityConfig{}, quietLogger()))
	ctx := context.Background()

	posts := c.Posts(ctx)
	require.Len(t, posts, 3)
	assert.Equal(t, "ia-transformando-desarrollo-software-2025", posts[0].Slug.Current)
	assert.Equal(t, "/placeholder.svg?height=300&width=500", posts[0].ImageURL)

	cats := c.Categories(ctx)
	require.Len(t, cats, 3)
	assert.Equal(t, "cat1", cats[0].ID)

	studies := c.CaseStudies(ctx)
	require.Len(t, studies, 3)
	assert.Equal(t, "Transformación Digital", studies[0].CategoryLabel)

	featured := c.FeaturedCaseStudies(ctx)
	require.NotEmpty(t, featured)
	assert.True(t, featured[0].Featured)
}

func TestCatalogFixturesAreNotMutated(t *testing.T) {
	c := newCatalog(t, nil)
	posts := c.Posts(context.Background())
	posts[0].Title = "changed"

	assert.NotEqual(t, "changed", c.Posts(context.Background())[0].Title)
}

func TestCatalogPostsByCategoryFixtures(t *testing.T) {
	c := newCatalog(t, nil)

	posts := c.PostsByCategory(context.Background(), "Ciberseguridad")
	require.Len(t, posts, 1)
	assert.Equal(t, "estrategias-ciberseguridad-empresas", posts[0].Slug.Current)

	assert.Len(t, c.PostsByCategory(context.Background(), ""), 3)
	assert.Empty(t, c.PostsByCategory(context.Background(), "sin-categoria"))
}

func TestCatalogPostFixtures(t *testing.T) {
	c := newCatalog(t, nil)

	post, related, err := c.Post(context.Background(), "estrategias-ciberseguridad-empresas")
	require.NoError(t, err)
	assert.Equal(t, "Carlos Mendoza", post.Author.Name)
	assert.Empty(t, related)

	_, _, err = c.Post(context.Background(), "no-existe")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = c.Post(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogCaseStudyFixtures(t *testing.T) {
	c := newCatalog(t, nil)

	study, related, err := c.CaseStudy(context.Background(), "Migración-Nube")
	require.NoError(t, err)
	assert.Equal(t, "CloudTech", study.Client)
	assert.Equal(t, "Cloud Computing", study.CategoryLabel)
	assert.Empty(t, related)
}

func TestCatalogServesBackendAndCaches(t *testing.T) {
	backend := newFakeBackend(t, map[string]string{
		`*[_type == "category"]`: `[{"_id":"c1","title":"Cloud","slug":{"current":"cloud"}}]`,
	})
	c := newCatalog(t, backend.store())

	first := c.Categories(context.Background())
	second := c.Categories(context.Background())

	require.Len(t, first, 1)
	assert.Equal(t, "c1", first[0].ID)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), backend.hits.Load())

	c.Invalidate()
	c.Categories(context.Background())
	assert.Equal(t, int32(2), backend.hits.Load())
}

func TestCatalogBackendFailureFallsBack(t *testing.T) {
	backend := newFakeBackend(t, nil)
	backend.status = http.StatusInternalServerError
	c := newCatalog(t, backend.store())

	posts := c.Posts(context.Background())
	assert.Len(t, posts, 3)
}

func TestCatalogEmptyListFallsBack(t *testing.T) {
	backend := newFakeBackend(t, map[string]string{
		`*[_type == "caseStudy"] | order(publishedAt desc, featured desc)`: `[]`,
	})
	c := newCatalog(t, backend.store())

	assert.Len(t, c.CaseStudies(context.Background()), 3)
}

func TestCatalogPostFromBackend(t *testing.T) {
	backend := newFakeBackend(t, map[string]string{
		`slug.current == $slug][0] {`: `{"_id":"p1","title":"Hola","slug":{"current":"hola"},"publishedAt":"2025-02-01T00:00:00Z",` +
			`"mainImage":{"asset":{"_ref":"image-abc123-1200x800-jpg"}}}`,
		`count(categories`: `[{"_id":"p2","title":"Otro","slug":{"current":"otro"},"publishedAt":"2025-01-01T00:00:00Z"}]`,
	})
	c := newCatalog(t, backend.store())

	post, related, err := c.Post(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "https://cdn.sanity.io/images/abc123/production/abc123-1200x800.jpg?w=500&h=300&fit=crop", post.ImageURL)
	require.Len(t, related, 1)
	assert.Equal(t, "p2", related[0].ID)
}

func TestCatalogMissingPostFromBackend(t *testing.T) {
	backend := newFakeBackend(t, nil)
	c := newCatalog(t, backend.store())

	_, _, err := c.Post(context.Background(), "ia-transformando-desarrollo-software-2025")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogBlog(t *testing.T) {
	c := newCatalog(t, nil)
	blog := c.Blog(context.Background())

	assert.Len(t, blog.Posts, 3)
	assert.Len(t, blog.Categories, 3)
}

func TestNormalizeSlug(t *testing.T) {
	tests := map[string]string{
		"migracion-nube":         "migracion-nube",
		"Migración Nube":         "migracion-nube",
		"  IA_Transformando--x ": "ia-transformando-x",
		"automatización":         "automatizacion",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSlug(in), in)
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Automatización", CategoryLabel("automatizacion"))
	assert.Equal(t, "Cloud Computing", CategoryLabel("cloud-computing"))
	assert.Equal(t, "Inteligencia Artificial", CategoryLabel("inteligencia-artificial"))
	assert.Equal(t, "", CategoryLabel(""))
}

func TestImageURL(t *testing.T) {
	img := &Image{Asset: &Reference{Ref: "image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg"}}

	assert.Equal(t,
		"https://cdn.sanity.io/images/abc123/production/Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000.jpg?w=500&h=300&fit=crop",
		ImageURL("abc123", "production", img, 500, 300))
	assert.Equal(t, "/placeholder.svg?height=300&width=500", ImageURL("abc123", "production", nil, 500, 300))
	assert.Equal(t, "/placeholder.svg?height=300&width=500",
		ImageURL("abc123", "production", &Image{Asset: &Reference{Ref: "image-placeholder-2"}}, 500, 300))
	assert.Equal(t, "/placeholder.svg?height=300&width=500", ImageURL(FallbackProjectID, "production", img, 500, 300))
}
