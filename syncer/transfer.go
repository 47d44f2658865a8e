package syncer

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strconv"

	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/store"
)

const defaultVideoMimeType = "video/mp4"

// Asset is one remote media item to move into the store.
type Asset struct {
	Id        string
	MediaType domain.MediaType
	URL       string
	Alt       string
}

// TransferResult carries the store file ids of a transfer. On failure FileIDs
// is empty and Message says why.
type TransferResult struct {
	FileIDs []string
	Message string
}

func (r TransferResult) OK() bool {
	return len(r.FileIDs) > 0
}

// Transferer moves media into the store. Images are ingested from their URL,
// videos go through a staged upload.
type Transferer struct {
	store      Store
	downloader Downloader
}

func NewTransferer(st Store, downloader Downloader) *Transferer {
	return &Transferer{store: st, downloader: downloader}
}

// Transfer never returns an error. Every failure is folded into the result.
func (t *Transferer) Transfer(ctx context.Context, asset Asset) TransferResult {
	if asset.URL == "" {
		return failed(asset, "no media url")
	}

	var (
		ids []string
		err error
	)
	switch asset.MediaType {
	case domain.MediaImage:
		ids, err = t.createFile(ctx, asset.Alt, store.ContentTypeImage, asset.URL)
	case domain.MediaVideo:
		ids, err = t.transferVideo(ctx, asset)
	default:
		return failed(asset, fmt.Sprintf("unsupported media type %q", asset.MediaType))
	}
	if err != nil {
		return failed(asset, err.Error())
	}
	if len(ids) == 0 {
		return failed(asset, "store returned no file")
	}
	return TransferResult{FileIDs: ids, Message: "ok"}
}

func (t *Transferer) transferVideo(ctx context.Context, asset Asset) ([]string, error) {
	dl, err := t.downloader.Download(ctx, asset.URL)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	mimeType := dl.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = defaultVideoMimeType
	}
	filename := videoFilename(asset)

	targets, err := t.store.CreateStagedUploads(ctx, []store.StagedUploadInput{{
		Filename:   filename,
		MimeType:   mimeType,
		Resource:   store.ContentTypeVideo,
		FileSize:   strconv.Itoa(len(dl.Data)),
		HttpMethod: "POST",
	}})
	if err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("staging: no upload target returned")
	}
	target := targets[0]

	if err := t.store.UploadStaged(ctx, target, filename, mimeType, dl.Data); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return t.createFile(ctx, asset.Alt, store.ContentTypeVideo, target.ResourceURL)
}

func (t *Transferer) createFile(ctx context.Context, alt, contentType, source string) ([]string, error) {
	files, err := t.store.CreateFiles(ctx, []store.FileInput{{
		Alt:            alt,
		ContentType:    contentType,
		OriginalSource: source,
	}})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if f.Id != "" {
			ids = append(ids, f.Id)
		}
	}
	return ids, nil
}

func videoFilename(asset Asset) string {
	ext := ""
	if u, err := url.Parse(asset.URL); err == nil {
		ext = path.Ext(u.Path)
	}
	if i := len(ext); i < 2 || i > 5 {
		ext = ".mp4"
	}
	return asset.Id + ext
}

func failed(asset Asset, msg string) TransferResult {
	log.Printf("Sync: Transfer of %s (%s) failed: %s", asset.Alt, asset.MediaType, msg)
	return TransferResult{Message: msg}
}
