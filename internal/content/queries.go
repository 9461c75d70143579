package content

// GROQ queries issued against the content backend. Queries taking a slug
// reference it as $slug.
const (
	allPostsQuery = `*[_type == "post"] | order(publishedAt desc) {
  _id,
  title,
  slug,
  excerpt,
  mainImage,
  publishedAt,
  author->{
    name
  },
  categories[]->{
    title,
    slug
  }
}`

	postsByCategoryQuery = `*[_type == "post" && $slug in categories[]->slug.current] | order(publishedAt desc) {
  _id,
  title,
  slug,
  excerpt,
  mainImage,
  publishedAt,
  author->{
    name
  },
  categories[]->{
    title,
    slug
  }
}`

	postQuery = `*[_type == "post" && slug.current == $slug][0] {
  _id,
  title,
  slug,
  excerpt,
  mainImage,
  publishedAt,
  author->{
    name,
    image,
    bio
  },
  categories[]->{
    title,
    slug
  },
  body
}`

	relatedPostsQuery = `*[_type == "post" && slug.current != $slug && count(categories[@._ref in *[_type == "post" && slug.current == $slug][0].categories[]._ref]._ref) > 0] | order(publishedAt desc)[0...3] {
  _id,
  title,
  slug,
  excerpt,
  mainImage,
  publishedAt,
  author->{
    name
  }
}`

	categoriesQuery = `*[_type == "category"] {
  _id,
  title,
  slug
}`

	allCaseStudiesQuery = `*[_type == "caseStudy"] | order(publishedAt desc, featured desc) {
  _id,
  title,
  slug,
  category,
  excerpt,
  image,
  client,
  industry,
  link,
  color,
  publishedAt,
  featured
}`

	featuredCaseStudiesQuery = `*[_type == "caseStudy"] | order(featured desc, publishedAt desc)[0...3] {
  _id,
  title,
  slug,
  excerpt,
  image,
  publishedAt,
  client,
  category,
  featured
}`

	caseStudyQuery = `*[_type == "caseStudy" && slug.current == $slug][0] {
  _id,
  title,
  slug,
  category,
  excerpt,
  image,
  client,
  industry,
  body,
  technologies,
  duration,
  link,
  color,
  publishedAt
}`

	relatedCaseStudiesQuery = `*[_type == "caseStudy" && slug.current != $slug && category == *[_type == "caseStudy" && slug.current == $slug][0].category] | order(publishedAt desc)[0...3] {
  _id,
  title,
  slug,
  image,
  category,
  publishedAt
}`
)

// relatedLimit matches the [0...3] slices above.
const relatedLimit = 3

// queries maps cache key names to GROQ text.
var queries = map[string]string{
	"posts":                 allPostsQuery,
	"posts_by_category":     postsByCategoryQuery,
	"post":                  postQuery,
	"related_posts":         relatedPostsQuery,
	"categories":            categoriesQuery,
	"case_studies":          allCaseStudiesQuery,
	"featured_case_studies": featuredCaseStudiesQuery,
	"case_study":            caseStudyQuery,
	"related_case_studies":  relatedCaseStudiesQuery,
}
