package writings

import (
	"regexp"
	"strings"
	"time"

	"folio/models"

	"github.com/samber/lo"
)

const All = "all"

var whitespace = regexp.MustCompile(`\s`)

// Slug turns a category name into its filter key, "Dev Log" becomes "dev-log"
func Slug(category string) string {
	return whitespace.ReplaceAllString(strings.ToLower(category), "-")
}

// Filter returns the posts whose category slug equals filter
func Filter(posts []models.Writing, filter string) []models.Writing {
	if filter == "" || filter == All {
		return posts
	}
	return lo.Filter(posts, func(p models.Writing, _ int) bool {
		return Slug(p.Category) == filter
	})
}

// Categories lists the distinct category slugs in order of first appearance
func Categories(posts []models.Writing) []string {
	return lo.Uniq(lo.Map(posts, func(p models.Writing, _ int) string {
		return Slug(p.Category)
	}))
}

// FormatDate renders an ISO date as "Jan 2, 2006". Unreadable dates are
// returned unchanged.
func FormatDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, iso); err != nil {
			return iso
		}
	}
	return t.Format("Jan 2, 2006")
}

func TopTags(post models.Writing) []string {
	return post.Tags[:min(3, len(post.Tags))]
}

// Link is where a post card points, "#" for posts that are not published yet
func Link(post models.Writing) string {
	if post.Url == "" {
		return "#"
	}
	return post.Url
}
