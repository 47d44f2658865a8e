package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/graph"
	"github.com/mohamedamezian/NN-Instagram/store"
	"github.com/mohamedamezian/NN-Instagram/util"
)

const (
	testPostType = "test_post"
	testListType = "test_list"
)

// fakeStore is an in-memory commerce store keyed by (type, handle).
type fakeStore struct {
	records map[string]*store.Metaobject
	files   []store.File
	nextId  int

	ops            []string
	createFiles    int
	upserts        map[string]int
	rejectHandles  map[string]bool
	failFileCreate map[string]bool
	failDeletes    map[string]int
	stagedSizes    []string
	uploads        []string
	fileInputs     []store.FileInput
	failStaging    bool
	failUpload     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:        map[string]*store.Metaobject{},
		upserts:        map[string]int{},
		rejectHandles:  map[string]bool{},
		failFileCreate: map[string]bool{},
		failDeletes:    map[string]int{},
	}
}

func key(typ, handle string) string { return typ + "/" + handle }

func (f *fakeStore) id(kind string) string {
	f.nextId++
	return fmt.Sprintf("gid://%s/%d", kind, f.nextId)
}

func (f *fakeStore) CreateFiles(ctx context.Context, files []store.FileInput) ([]store.File, error) {
	f.createFiles++
	var out []store.File
	for _, in := range files {
		f.ops = append(f.ops, "fileCreate "+in.Alt)
		f.fileInputs = append(f.fileInputs, in)
		if f.failFileCreate[in.Alt] {
			return nil, store.UserErrors{{Field: []string{"originalSource"}, Message: "cannot fetch"}}
		}
		file := store.File{Id: f.id("File"), Alt: in.Alt, FileStatus: "UPLOADED"}
		f.files = append(f.files, file)
		out = append(out, file)
	}
	return out, nil
}

func (f *fakeStore) CreateStagedUploads(ctx context.Context, inputs []store.StagedUploadInput) ([]store.StagedTarget, error) {
	if f.failStaging {
		return nil, store.UserErrors{{Field: []string{"input", "fileSize"}, Message: "too large"}}
	}
	var out []store.StagedTarget
	for _, in := range inputs {
		f.stagedSizes = append(f.stagedSizes, in.FileSize)
		out = append(out, store.StagedTarget{
			URL:         "https://upload.test/",
			ResourceURL: "https://staged.test/" + in.Filename,
			Parameters:  []store.StagedParameter{{Name: "key", Value: in.Filename}},
		})
	}
	return out, nil
}

func (f *fakeStore) UploadStaged(ctx context.Context, target store.StagedTarget, filename, mimeType string, data []byte) error {
	f.uploads = append(f.uploads, filename)
	if f.failUpload {
		return errors.New("upload failed with status: 403")
	}
	return nil
}

func (f *fakeStore) UpsertMetaobject(ctx context.Context, typ, handle string, fields []store.Field) (*store.Metaobject, error) {
	f.ops = append(f.ops, "upsert "+handle)
	f.upserts[handle]++
	if f.rejectHandles[handle] {
		return nil, store.UserErrors{{Field: []string{"fields"}, Message: "invalid value"}}
	}
	k := key(typ, handle)
	mo, ok := f.records[k]
	if !ok {
		mo = &store.Metaobject{Id: f.id("Metaobject"), Handle: handle, Type: typ}
		f.records[k] = mo
	}
	mo.Fields = append([]store.Field(nil), fields...)
	copied := *mo
	return &copied, nil
}

func (f *fakeStore) MetaobjectByHandle(ctx context.Context, typ, handle string) (*store.Metaobject, error) {
	mo, ok := f.records[key(typ, handle)]
	if !ok {
		return nil, nil
	}
	copied := *mo
	return &copied, nil
}

func (f *fakeStore) DeleteMetaobject(ctx context.Context, id string) error {
	f.ops = append(f.ops, "delete "+id)
	if f.failDeletes[id] > 0 {
		f.failDeletes[id]--
		return errors.New("temporarily unavailable")
	}
	for k, mo := range f.records {
		if mo.Id == id {
			delete(f.records, k)
			return nil
		}
	}
	return store.UserErrors{{Message: "not found"}}
}

func (f *fakeStore) DeleteFiles(ctx context.Context, ids []string) error {
	f.ops = append(f.ops, fmt.Sprintf("fileDelete %d", len(ids)))
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.files[:0]
	for _, file := range f.files {
		if !drop[file.Id] {
			kept = append(kept, file)
		}
	}
	f.files = kept
	return nil
}

func (f *fakeStore) ListMetaobjects(ctx context.Context, typ string) ([]store.Metaobject, error) {
	var out []store.Metaobject
	for _, mo := range f.records {
		if mo.Type == typ {
			out = append(out, *mo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

// ListFiles understands the "alt:prefix*" form only.
func (f *fakeStore) ListFiles(ctx context.Context, query string) ([]store.File, error) {
	prefix := strings.TrimSuffix(strings.TrimPrefix(query, "alt:"), "*")
	var out []store.File
	for _, file := range f.files {
		if strings.HasPrefix(file.Alt, prefix) {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeStore) recordsOfType(typ string) int {
	n := 0
	for _, mo := range f.records {
		if mo.Type == typ {
			n++
		}
	}
	return n
}

func (f *fakeStore) field(typ, handle, fieldKey string) string {
	mo, ok := f.records[key(typ, handle)]
	if !ok {
		return ""
	}
	v, _ := mo.FieldValue(fieldKey)
	return v
}

type fakeFetcher struct {
	feed  *domain.Feed
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, cred domain.Credential) (*domain.Feed, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.feed
	copied.Posts = append([]domain.RemotePost(nil), f.feed.Posts...)
	return &copied, nil
}

type fakeDownloader struct {
	data  map[string][]byte
	calls int
}

func (d *fakeDownloader) Download(ctx context.Context, url string) (*graph.Download, error) {
	d.calls++
	b, ok := d.data[url]
	if !ok {
		return nil, errors.New("download failed with status: 404")
	}
	return &graph.Download{Data: b, ContentType: "video/mp4"}, nil
}

type fakeAccounts struct {
	acc  *domain.Account
	runs []domain.SyncRun
}

func (a *fakeAccounts) ReadAccount(tenant, provider string) (*domain.Account, error) {
	if a.acc == nil || a.acc.Tenant != tenant || a.acc.Provider != provider {
		return nil, sql.ErrNoRows
	}
	copied := *a.acc
	return &copied, nil
}

func (a *fakeAccounts) UpdateAccountUsername(id uuid.UUID, username string) error {
	if a.acc == nil || a.acc.Id != id {
		return sql.ErrNoRows
	}
	a.acc.Username = username
	return nil
}

func (a *fakeAccounts) CreateSyncRun(run *domain.SyncRun) error {
	a.runs = append(a.runs, *run)
	return nil
}

func testConf() *util.AppConfig {
	conf := &util.AppConfig{}
	conf.Conf.Store.PostType = testPostType
	conf.Conf.Store.ListType = testListType
	conf.Conf.Sync.Provider = domain.DefaultProvider
	conf.Conf.Sync.ListStrategy = ListReplace
	conf.Conf.Sync.DeleteRetries = 1
	return conf
}

type harness struct {
	store      *fakeStore
	fetcher    *fakeFetcher
	downloader *fakeDownloader
	accounts   *fakeAccounts
	syncer     *Syncer
}

func newHarness(conf *util.AppConfig, storedUsername string, feed *domain.Feed) *harness {
	h := &harness{
		store:      newFakeStore(),
		fetcher:    &fakeFetcher{feed: feed},
		downloader: &fakeDownloader{data: map[string][]byte{}},
		accounts: &fakeAccounts{acc: &domain.Account{
			Id:          uuid.New(),
			Tenant:      "shop-1",
			Provider:    domain.DefaultProvider,
			AccessToken: "tok",
			Username:    storedUsername,
			ExpiresAt:   time.Now().Add(time.Hour),
		}},
	}
	h.syncer = New(conf, h.accounts, h.fetcher, h.downloader, h.store)
	return h
}

func imagePost(id, caption string) domain.RemotePost {
	return domain.RemotePost{Id: id, MediaType: domain.MediaImage, MediaURL: "https://cdn.test/" + id + ".jpg", Caption: caption}
}

func feedOf(username string, posts ...domain.RemotePost) *domain.Feed {
	return &domain.Feed{Posts: posts, Profile: domain.Profile{Id: "1", Username: username, Name: strings.ToUpper(username)}}
}
