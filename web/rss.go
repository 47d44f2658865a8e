package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/feeds"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/util"
)

var errNoRuns = errors.New("no sync runs recorded")

func baseLink(conf *util.AppConfig) string {
	return fmt.Sprintf("http://%s:%d/feed", conf.Conf.Host, conf.Conf.HttpPort)
}

// GetRSS renders the run journal of a tenant as RSS 2.0.
func GetRSS(conf *util.AppConfig, tenant string, runs []domain.SyncRun) (string, error) {
	if len(runs) == 0 {
		return "", errNoRuns
	}
	link := fmt.Sprintf("%s?tenant=%s", baseLink(conf), tenant)

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s sync runs - %s", util.Name, tenant),
		Link:        &feeds.Link{Href: link},
		Description: "feed sync journal",
		Author:      &feeds.Author{Name: tenant},
		Created:     time.Now(),
	}

	for i := range runs {
		feed.Items = append(feed.Items, runItem(conf, &runs[i]))
	}
	return feed.ToRss()
}

// GetRSSItem renders a single run.
func GetRSSItem(conf *util.AppConfig, run *domain.SyncRun) (string, error) {
	if run == nil {
		return "", errNoRuns
	}
	item := runItem(conf, run)
	feed := &feeds.Feed{
		Title:       "Single sync run",
		Link:        item.Link,
		Description: "feed sync journal",
		Author:      item.Author,
		Created:     time.Now(),
		Items:       []*feeds.Item{item},
	}
	return feed.ToRss()
}

func runItem(conf *util.AppConfig, run *domain.SyncRun) *feeds.Item {
	author := run.Username
	if author == "" {
		author = run.Tenant
	}
	return &feeds.Item{
		Id:          run.Id.String(),
		Title:       fmt.Sprintf("%s %s", run.StartedAt.Format(util.DateTimeFormat()), run.Status),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/%s", baseLink(conf), run.Id)},
		Description: runContent(run),
		Author:      &feeds.Author{Name: author},
		Created:     run.StartedAt,
	}
}

func runContent(run *domain.SyncRun) string {
	s := fmt.Sprintf("%s: fetched %d, synced %d, skipped %d", run.Message, run.PostsFetched, run.PostsSynced, run.PostsSkipped)
	if run.ReconciledFrom != "" {
		s += fmt.Sprintf(" (replaced %s)", run.ReconciledFrom)
	}
	return s
}
