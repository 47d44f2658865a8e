package syncer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohamedamezian/NN-Instagram/domain"
)

// Field keys of a post record.
const (
	fieldData     = "data"
	fieldImages   = "images"
	fieldCaption  = "caption"
	fieldLikes    = "likes"
	fieldComments = "comments"
)

// Field keys of a list record.
const (
	fieldPosts    = "posts"
	fieldUsername = "username"
	fieldName     = "name"
)

// Lookup finds post records by their deterministic handle.
type Lookup struct {
	store    Store
	postType string
}

func NewLookup(st Store, postType string) *Lookup {
	return &Lookup{store: st, postType: postType}
}

// Find returns nil and no error when no record has the handle.
func (l *Lookup) Find(ctx context.Context, handle string) (*domain.PostRecord, error) {
	mo, err := l.store.MetaobjectByHandle(ctx, l.postType, handle)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", handle, err)
	}
	if mo == nil {
		return nil, nil
	}

	rec := &domain.PostRecord{Id: mo.Id, Handle: mo.Handle}
	if rec.Handle == "" {
		rec.Handle = handle
	}
	raw, ok := mo.FieldValue(fieldImages)
	if !ok || raw == "" {
		return rec, nil
	}
	if err := json.Unmarshal([]byte(raw), &rec.MediaRefs); err != nil {
		return nil, fmt.Errorf("lookup %s: malformed %s field: %w", handle, fieldImages, err)
	}
	return rec, nil
}
