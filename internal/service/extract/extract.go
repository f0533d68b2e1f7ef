package extract

import (
	"strings"

	"github.com/jgivc/rinupdate/internal/entity"
)

type Extractor struct {
	steamHost     string
	downloadHosts []string
}

func NewExtractor(steamHost string, downloadHosts []string) *Extractor {
	return &Extractor{
		steamHost:     steamHost,
		downloadHosts: downloadHosts,
	}
}

// Classify splits anchors into Steam store links and download links by a
// substring match on href. Anything else is dropped. Hrefs are not validated.
func (e *Extractor) Classify(anchors []entity.Anchor) ([]string, []entity.LinkText) {
	var (
		steamLinks []string
		dlLinks    []entity.LinkText
	)

	for _, a := range anchors {
		if e.steamHost != "" && strings.Contains(a.Href, e.steamHost) {
			steamLinks = append(steamLinks, a.Href)

			continue
		}

		if !e.isDownload(a.Href) {
			continue
		}

		text := strings.TrimSpace(a.Text)
		if text == "" {
			continue
		}

		dlLinks = append(dlLinks, entity.LinkText{Link: a.Href, Text: text})
	}

	return steamLinks, dlLinks
}

// Extract builds the search result skeleton of a post. Steam metadata is
// resolved separately.
func (e *Extractor) Extract(post *entity.RawPost) ([]string, *entity.SearchResult) {
	steamLinks, dlLinks := e.Classify(post.Anchors)

	return steamLinks, &entity.SearchResult{
		ThreadInfo: entity.LinkText{Link: post.URL, Text: post.Title},
		Author:     post.Author,
		ImageURL:   post.ImageURL,
		DLLinks:    dlLinks,
	}
}

func (e *Extractor) isDownload(href string) bool {
	for _, host := range e.downloadHosts {
		if strings.Contains(href, host) {
			return true
		}
	}

	return false
}
