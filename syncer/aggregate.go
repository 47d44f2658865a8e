package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/store"
)

// ErrNothingToList is returned by Write when no post ids are given.
var ErrNothingToList = errors.New("no synced posts to list")

// Aggregator maintains the feed list record of a username.
type Aggregator struct {
	store    Store
	listType string
}

func NewAggregator(st Store, listType string) *Aggregator {
	return &Aggregator{store: st, listType: listType}
}

// Write replaces the list record of username with ids. With no ids nothing
// is written and the previous record, if any, stays as it was.
func (a *Aggregator) Write(ctx context.Context, feed *domain.Feed, ids []string, username, displayName string) (*domain.ListRecord, error) {
	if len(ids) == 0 {
		return nil, ErrNothingToList
	}
	handle := domain.ListHandle(username)

	data, err := json.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("list %s: failed to marshal feed: %w", handle, err)
	}
	posts, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("list %s: failed to marshal ids: %w", handle, err)
	}

	mo, err := a.store.UpsertMetaobject(ctx, a.listType, handle, []store.Field{
		{Key: fieldData, Value: string(data)},
		{Key: fieldPosts, Value: string(posts)},
		{Key: fieldUsername, Value: username},
		{Key: fieldName, Value: displayName},
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", handle, err)
	}
	return &domain.ListRecord{
		Id:          mo.Id,
		Handle:      handle,
		PostIds:     ids,
		Username:    username,
		DisplayName: displayName,
	}, nil
}
