package store

import (
	"context"
	"fmt"
)

const (
	mutationMetaobjectUpsert = `mutation metaobjectUpsert($handle: MetaobjectHandleInput!, $metaobject: MetaobjectUpsertInput!) {
  metaobjectUpsert(handle: $handle, metaobject: $metaobject) {
    metaobject { id handle type fields { key value } }
    userErrors { field message code }
  }
}`

	queryMetaobjectByHandle = `query metaobjectByHandle($handle: MetaobjectHandleInput!) {
  metaobjectByHandle(handle: $handle) { id handle type fields { key value } }
}`

	mutationMetaobjectDelete = `mutation metaobjectDelete($id: ID!) {
  metaobjectDelete(id: $id) {
    deletedId
    userErrors { field message code }
  }
}`

	queryMetaobjects = `query metaobjects($type: String!, $first: Int!, $after: String) {
  metaobjects(type: $type, first: $first, after: $after) {
    nodes { id handle type }
    pageInfo { hasNextPage endCursor }
  }
}`
)

type handleInput struct {
	Type   string `json:"type"`
	Handle string `json:"handle"`
}

// UpsertMetaobject creates the record for (typ, handle) or updates it in place.
func (c *Client) UpsertMetaobject(ctx context.Context, typ, handle string, fields []Field) (*Metaobject, error) {
	var data struct {
		MetaobjectUpsert struct {
			Metaobject *Metaobject `json:"metaobject"`
			UserErrors UserErrors  `json:"userErrors"`
		} `json:"metaobjectUpsert"`
	}
	vars := map[string]interface{}{
		"handle":     handleInput{Type: typ, Handle: handle},
		"metaobject": map[string]interface{}{"fields": fields},
	}
	if err := c.do(ctx, mutationMetaobjectUpsert, vars, &data); err != nil {
		return nil, fmt.Errorf("metaobjectUpsert %s: %w", handle, err)
	}
	if len(data.MetaobjectUpsert.UserErrors) > 0 {
		logUserErrors("metaobjectUpsert", data.MetaobjectUpsert.UserErrors)
		return nil, data.MetaobjectUpsert.UserErrors
	}
	if data.MetaobjectUpsert.Metaobject == nil {
		return nil, fmt.Errorf("metaobjectUpsert %s: empty response", handle)
	}
	return data.MetaobjectUpsert.Metaobject, nil
}

// MetaobjectByHandle returns nil and no error when no record has the handle.
func (c *Client) MetaobjectByHandle(ctx context.Context, typ, handle string) (*Metaobject, error) {
	var data struct {
		MetaobjectByHandle *Metaobject `json:"metaobjectByHandle"`
	}
	vars := map[string]interface{}{"handle": handleInput{Type: typ, Handle: handle}}
	if err := c.do(ctx, queryMetaobjectByHandle, vars, &data); err != nil {
		return nil, fmt.Errorf("metaobjectByHandle %s: %w", handle, err)
	}
	return data.MetaobjectByHandle, nil
}

func (c *Client) DeleteMetaobject(ctx context.Context, id string) error {
	var data struct {
		MetaobjectDelete struct {
			DeletedId  *string    `json:"deletedId"`
			UserErrors UserErrors `json:"userErrors"`
		} `json:"metaobjectDelete"`
	}
	if err := c.do(ctx, mutationMetaobjectDelete, map[string]interface{}{"id": id}, &data); err != nil {
		return fmt.Errorf("metaobjectDelete %s: %w", id, err)
	}
	if len(data.MetaobjectDelete.UserErrors) > 0 {
		logUserErrors("metaobjectDelete", data.MetaobjectDelete.UserErrors)
		return data.MetaobjectDelete.UserErrors
	}
	return nil
}

// ListMetaobjects enumerates every record of a type, page by page.
func (c *Client) ListMetaobjects(ctx context.Context, typ string) ([]Metaobject, error) {
	var all []Metaobject
	var after *string
	for {
		var data struct {
			Metaobjects struct {
				Nodes    []Metaobject `json:"nodes"`
				PageInfo pageInfo     `json:"pageInfo"`
			} `json:"metaobjects"`
		}
		vars := map[string]interface{}{"type": typ, "first": c.pageSize, "after": after}
		if err := c.do(ctx, queryMetaobjects, vars, &data); err != nil {
			return all, fmt.Errorf("metaobjects %s: %w", typ, err)
		}
		all = append(all, data.Metaobjects.Nodes...)
		if !data.Metaobjects.PageInfo.HasNextPage || data.Metaobjects.PageInfo.EndCursor == "" {
			return all, nil
		}
		cursor := data.Metaobjects.PageInfo.EndCursor
		after = &cursor
	}
}
