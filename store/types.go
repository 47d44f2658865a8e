package store

import (
	"fmt"
	"strings"
)

// Field is one key/value pair of a metaobject.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metaobject is a typed record addressed by a unique handle.
type Metaobject struct {
	Id     string  `json:"id"`
	Handle string  `json:"handle"`
	Type   string  `json:"type"`
	Fields []Field `json:"fields"`
}

// FieldValue returns the value stored under key.
func (m *Metaobject) FieldValue(key string) (string, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// FileInput asks the store to ingest a file from a URL.
type FileInput struct {
	Alt            string `json:"alt"`
	ContentType    string `json:"contentType"`
	OriginalSource string `json:"originalSource"`
}

const (
	ContentTypeImage = "IMAGE"
	ContentTypeVideo = "VIDEO"
)

// File is a stored media asset.
type File struct {
	Id         string `json:"id"`
	Alt        string `json:"alt"`
	FileStatus string `json:"fileStatus"`
}

// StagedUploadInput requests a temporary upload target.
type StagedUploadInput struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Resource   string `json:"resource"`
	FileSize   string `json:"fileSize"`
	HttpMethod string `json:"httpMethod"`
}

type StagedParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StagedTarget is where to upload bytes and how to reference them afterwards.
type StagedTarget struct {
	URL         string            `json:"url"`
	ResourceURL string            `json:"resourceUrl"`
	Parameters  []StagedParameter `json:"parameters"`
}

// UserError is a field-level validation error reported by a mutation.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

// UserErrors is returned as an error by mutations that report user errors.
type UserErrors []UserError

func (e UserErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, u := range e {
		if len(u.Field) > 0 {
			msgs = append(msgs, fmt.Sprintf("%s: %s", strings.Join(u.Field, "."), u.Message))
		} else {
			msgs = append(msgs, u.Message)
		}
	}
	return "store user errors: " + strings.Join(msgs, "; ")
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}
