package syncer

import (
	"context"
	"log"

	"github.com/mohamedamezian/NN-Instagram/domain"
)

type postState int

const (
	stateLookup postState = iota
	stateReuse
	stateTransfer
	stateUpsert
	stateDone
	stateSkipped
)

func (s postState) String() string {
	switch s {
	case stateLookup:
		return "lookup"
	case stateReuse:
		return "reuse"
	case stateTransfer:
		return "transfer"
	case stateUpsert:
		return "upsert"
	case stateDone:
		return "done"
	case stateSkipped:
		return "skipped"
	}
	return "unknown"
}

// postOutcome is where one post ended up. existingId is the id of a record
// that was already in the store before this run, even if the upsert failed.
type postOutcome struct {
	state      postState
	id         string
	existingId string
	reason     string
	err        error
}

// processPost drives one post through lookup, reuse or transfer, and upsert.
func (s *Syncer) processPost(ctx context.Context, post *domain.RemotePost, username string) postOutcome {
	handle := domain.PostHandle(username, post.Id)
	out := postOutcome{state: stateLookup}
	var (
		existing *domain.PostRecord
		refs     []string
	)

	for out.state != stateDone && out.state != stateSkipped {
		switch out.state {
		case stateLookup:
			rec, err := s.lookup.Find(ctx, handle)
			switch {
			case err != nil:
				out.err = err
				out.skip(err.Error())
			case rec != nil:
				existing = rec
				out.existingId = rec.Id
				out.state = stateReuse
			default:
				out.state = stateTransfer
			}

		case stateReuse:
			refs = existing.MediaRefs
			out.state = stateUpsert

		case stateTransfer:
			refs = s.transferPost(ctx, post, username)
			if len(refs) == 0 {
				out.skip("no media transferred")
			} else {
				out.state = stateUpsert
			}

		case stateUpsert:
			id, err := s.upserter.Upsert(ctx, post, refs, username)
			if err != nil {
				out.err = err
				out.skip(err.Error())
			} else {
				out.id = id
				out.state = stateDone
			}
		}
	}

	if out.state == stateSkipped {
		log.Printf("Sync: Skipped %s: %s", handle, out.reason)
	}
	return out
}

func (o *postOutcome) skip(reason string) {
	o.reason = o.state.String() + ": " + reason
	o.state = stateSkipped
}

// transferPost moves the media of a post seen for the first time. Carousel
// children are transferred one by one; failed children are left out and the
// rest keep their order.
func (s *Syncer) transferPost(ctx context.Context, post *domain.RemotePost, username string) []string {
	if post.MediaType != domain.MediaCarousel {
		res := s.transferer.Transfer(ctx, Asset{
			Id:        post.Id,
			MediaType: post.MediaType,
			URL:       post.MediaURL,
			Alt:       domain.PostAltText(username, post.Id),
		})
		return res.FileIDs
	}

	var refs []string
	for _, child := range post.Children {
		res := s.transferer.Transfer(ctx, Asset{
			Id:        child.Id,
			MediaType: child.MediaType,
			URL:       child.MediaURL,
			Alt:       domain.ChildAltText(username, post.Id, child.Id),
		})
		refs = append(refs, res.FileIDs...)
	}
	return refs
}
