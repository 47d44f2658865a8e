package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

const (
	mutationFileCreate = `mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files { id alt fileStatus }
    userErrors { field message code }
  }
}`

	mutationStagedUploadsCreate = `mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets { url resourceUrl parameters { name value } }
    userErrors { field message }
  }
}`

	mutationFileDelete = `mutation fileDelete($fileIds: [ID!]!) {
  fileDelete(fileIds: $fileIds) {
    deletedFileIds
    userErrors { field message code }
  }
}`

	queryFiles = `query files($first: Int!, $after: String, $query: String) {
  files(first: $first, after: $after, query: $query) {
    nodes { id alt fileStatus }
    pageInfo { hasNextPage endCursor }
  }
}`
)

// CreateFiles asks the store to ingest files from their source URLs. The store
// processes them asynchronously; the returned ids are usable immediately.
func (c *Client) CreateFiles(ctx context.Context, files []FileInput) ([]File, error) {
	var data struct {
		FileCreate struct {
			Files      []File     `json:"files"`
			UserErrors UserErrors `json:"userErrors"`
		} `json:"fileCreate"`
	}
	if err := c.do(ctx, mutationFileCreate, map[string]interface{}{"files": files}, &data); err != nil {
		return nil, fmt.Errorf("fileCreate: %w", err)
	}
	if len(data.FileCreate.UserErrors) > 0 {
		logUserErrors("fileCreate", data.FileCreate.UserErrors)
		return nil, data.FileCreate.UserErrors
	}
	return data.FileCreate.Files, nil
}

func (c *Client) CreateStagedUploads(ctx context.Context, inputs []StagedUploadInput) ([]StagedTarget, error) {
	var data struct {
		StagedUploadsCreate struct {
			StagedTargets []StagedTarget `json:"stagedTargets"`
			UserErrors    UserErrors     `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}
	if err := c.do(ctx, mutationStagedUploadsCreate, map[string]interface{}{"input": inputs}, &data); err != nil {
		return nil, fmt.Errorf("stagedUploadsCreate: %w", err)
	}
	if len(data.StagedUploadsCreate.UserErrors) > 0 {
		logUserErrors("stagedUploadsCreate", data.StagedUploadsCreate.UserErrors)
		return nil, data.StagedUploadsCreate.UserErrors
	}
	return data.StagedUploadsCreate.StagedTargets, nil
}

// UploadStaged posts data to a staged target as multipart/form-data. The
// target parameters are replayed verbatim and in order, the file part last.
func (c *Client) UploadStaged(ctx context.Context, target StagedTarget, filename, mimeType string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range target.Parameters {
		if err := mw.WriteField(p.Name, p.Value); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", p.Name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("staged upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("staged upload returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (c *Client) DeleteFiles(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var data struct {
		FileDelete struct {
			DeletedFileIds []string   `json:"deletedFileIds"`
			UserErrors     UserErrors `json:"userErrors"`
		} `json:"fileDelete"`
	}
	if err := c.do(ctx, mutationFileDelete, map[string]interface{}{"fileIds": ids}, &data); err != nil {
		return fmt.Errorf("fileDelete: %w", err)
	}
	if len(data.FileDelete.UserErrors) > 0 {
		logUserErrors("fileDelete", data.FileDelete.UserErrors)
		return data.FileDelete.UserErrors
	}
	return nil
}

// ListFiles enumerates every file matching the search query, page by page.
func (c *Client) ListFiles(ctx context.Context, query string) ([]File, error) {
	var all []File
	var after *string
	for {
		var data struct {
			Files struct {
				Nodes    []File   `json:"nodes"`
				PageInfo pageInfo `json:"pageInfo"`
			} `json:"files"`
		}
		vars := map[string]interface{}{"first": c.pageSize, "after": after, "query": query}
		if err := c.do(ctx, queryFiles, vars, &data); err != nil {
			return all, fmt.Errorf("files: %w", err)
		}
		all = append(all, data.Files.Nodes...)
		if !data.Files.PageInfo.HasNextPage || data.Files.PageInfo.EndCursor == "" {
			return all, nil
		}
		cursor := data.Files.PageInfo.EndCursor
		after = &cursor
	}
}
