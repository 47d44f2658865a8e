package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/store"
)

// ErrUpsertRejected wraps field-level errors the store reported for a write.
var ErrUpsertRejected = errors.New("store rejected the record")

// Upserter writes per-post records by handle.
type Upserter struct {
	store    Store
	postType string
}

func NewUpserter(st Store, postType string) *Upserter {
	return &Upserter{store: st, postType: postType}
}

// Upsert writes the record of post under username and returns its store id.
// Writing the same inputs twice leaves the record unchanged.
func (u *Upserter) Upsert(ctx context.Context, post *domain.RemotePost, refs []string, username string) (string, error) {
	handle := domain.PostHandle(username, post.Id)

	fields, err := postFields(post, refs)
	if err != nil {
		return "", fmt.Errorf("upsert %s: %w", handle, err)
	}

	mo, err := u.store.UpsertMetaobject(ctx, u.postType, handle, fields)
	if err != nil {
		var ue store.UserErrors
		if errors.As(err, &ue) {
			log.Printf("Sync: Store rejected %s: %v", handle, ue)
			return "", fmt.Errorf("%w: %s: %v", ErrUpsertRejected, handle, ue)
		}
		return "", fmt.Errorf("upsert %s: %w", handle, err)
	}
	return mo.Id, nil
}

func postFields(post *domain.RemotePost, refs []string) ([]store.Field, error) {
	data, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post: %w", err)
	}
	if refs == nil {
		refs = []string{}
	}
	images, err := json.Marshal(refs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media refs: %w", err)
	}
	return []store.Field{
		{Key: fieldData, Value: string(data)},
		{Key: fieldImages, Value: string(images)},
		{Key: fieldCaption, Value: post.CaptionOrDefault()},
		{Key: fieldLikes, Value: post.Likes()},
		{Key: fieldComments, Value: post.Comments()},
	}, nil
}
