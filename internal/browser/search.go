package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// BuildSearchURL turns a filter into a LinkedIn people-search URL. URL-mode
// filters pass through untouched; form filters become a keyword search with
// company, school and title terms combined.
func BuildSearchURL(filter model.SearchFilter) string {
	if filter.URLMode() {
		return filter.LinkedInURL
	}
	var parts []string
	parts = append(parts, strings.Join(filter.Titles, " OR "))
	parts = append(parts, filter.Companies...)
	parts = append(parts, filter.Universities...)
	parts = append(parts, filter.AdditionalFilters...)
	keywords := strings.Join(parts, " ")
	return fmt.Sprintf(
		"https://www.linkedin.com/search/results/people/?keywords=%s&origin=GLOBAL_SEARCH_HEADER",
		url.QueryEscape(keywords),
	)
}

// pagedURL appends the page parameter to a search URL.
func pagedURL(searchURL string, page int) string {
	if page <= 1 {
		return searchURL
	}
	sep := "?"
	if strings.Contains(searchURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", searchURL, sep, page)
}

// Search walks up to maxPages result pages sequentially and hands each
// page's raw content to onPage. The next page is not requested until onPage
// returns: accumulation is a stateful fold and capacity has to be checked
// between pages. onPage errors skip the page; ErrSearchDone stops the walk.
func (s *Session) Search(ctx context.Context, searchURL string, maxPages int, onPage func(ctx context.Context, pageNum int, content string) error) error {
	log := zap.L().With(zap.String("component", "search_driver"))

	page, err := s.newPage(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "browser: search cancelled")
		}

		target := pagedURL(searchURL, pageNum)
		log.Info("loading search results page", zap.Int("page", pageNum), zap.String("url", target))
		if err := s.loadPage(page, target); err != nil {
			// A dead tab kills the whole phase; a failed single page does not.
			log.Warn("search page load failed, skipping", zap.Int("page", pageNum), zap.Error(err))
			continue
		}

		content, err := pageText(page)
		if err != nil {
			log.Warn("search page text extraction failed, skipping", zap.Int("page", pageNum), zap.Error(err))
			continue
		}

		if err := onPage(ctx, pageNum, content); err != nil {
			if eris.Is(err, ErrSearchDone) {
				log.Info("search stopped early", zap.Int("page", pageNum))
				return nil
			}
			log.Warn("page handler failed, skipping page", zap.Int("page", pageNum), zap.Error(err))
		}
	}
	return nil
}

// ErrSearchDone signals from an onPage handler that no further result pages
// are needed (capacity reached).
var ErrSearchDone = eris.New("browser: search done")
