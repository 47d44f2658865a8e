package syncer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/store"
)

// Report is the outcome of tearing down one retired username. Failures are
// listed, never returned as an error.
type Report struct {
	Username       string   `json:"username"`
	RecordsDeleted int      `json:"recordsDeleted"`
	ListDeleted    bool     `json:"listDeleted"`
	FilesDeleted   int      `json:"filesDeleted"`
	Failures       []string `json:"failures,omitempty"`
}

func (r *Report) Clean() bool {
	return len(r.Failures) == 0
}

// Reconciler deletes everything a previous username left in the store. Each
// delete is a separate step that is safe to repeat, so a step that fails is
// retried on its own and the rest still run.
type Reconciler struct {
	store    Store
	postType string
	listType string
	retries  int
}

func NewReconciler(st Store, postType, listType string, retries int) *Reconciler {
	if retries < 0 {
		retries = 0
	}
	return &Reconciler{store: st, postType: postType, listType: listType, retries: retries}
}

func (r *Reconciler) Reconcile(ctx context.Context, oldUsername string) Report {
	report := Report{Username: oldUsername}
	if oldUsername == "" {
		return report
	}
	log.Printf("Sync: Tearing down records of retired username %s", oldUsername)

	postPrefix := domain.PostHandlePrefix(oldUsername)
	var posts []store.Metaobject
	r.step(ctx, &report, "enumerate "+r.postType, func() error {
		all, err := r.store.ListMetaobjects(ctx, r.postType)
		if err != nil {
			return err
		}
		posts = posts[:0]
		for _, mo := range all {
			if strings.HasPrefix(mo.Handle, postPrefix) {
				posts = append(posts, mo)
			}
		}
		return nil
	})
	for _, mo := range posts {
		id := mo.Id
		if r.step(ctx, &report, "delete "+mo.Handle, func() error {
			return r.store.DeleteMetaobject(ctx, id)
		}) {
			report.RecordsDeleted++
		}
	}

	listHandle := domain.ListHandle(oldUsername)
	var lists []store.Metaobject
	r.step(ctx, &report, "enumerate "+r.listType, func() error {
		all, err := r.store.ListMetaobjects(ctx, r.listType)
		if err != nil {
			return err
		}
		lists = lists[:0]
		for _, mo := range all {
			if mo.Handle == listHandle {
				lists = append(lists, mo)
			}
		}
		return nil
	})
	for _, mo := range lists {
		id := mo.Id
		if r.step(ctx, &report, "delete "+mo.Handle, func() error {
			return r.store.DeleteMetaobject(ctx, id)
		}) {
			report.ListDeleted = true
		}
	}

	altPrefix := domain.AltTextPrefix(oldUsername)
	var fileIds []string
	r.step(ctx, &report, "enumerate files", func() error {
		all, err := r.store.ListFiles(ctx, fmt.Sprintf("alt:%s*", altPrefix))
		if err != nil {
			return err
		}
		fileIds = fileIds[:0]
		for _, f := range all {
			if strings.HasPrefix(f.Alt, altPrefix) {
				fileIds = append(fileIds, f.Id)
			}
		}
		return nil
	})
	for start := 0; start < len(fileIds); start += store.MaxPageSize {
		end := min(start+store.MaxPageSize, len(fileIds))
		batch := fileIds[start:end]
		if r.step(ctx, &report, fmt.Sprintf("delete %d files", len(batch)), func() error {
			return r.store.DeleteFiles(ctx, batch)
		}) {
			report.FilesDeleted += len(batch)
		}
	}

	log.Printf("Sync: Teardown of %s removed %d records, %d files, list=%v, %d failures",
		oldUsername, report.RecordsDeleted, report.FilesDeleted, report.ListDeleted, len(report.Failures))
	return report
}

// step runs f up to 1+retries times and records the last error if it never
// succeeds.
func (r *Reconciler) step(ctx context.Context, report *Report, name string, f func() error) bool {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
		if err = f(); err == nil {
			return true
		}
		log.Printf("Sync: Teardown step %q failed (attempt %d): %v", name, attempt+1, err)
	}
	report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", name, err))
	return false
}
