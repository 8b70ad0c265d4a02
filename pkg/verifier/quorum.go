package verifier

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RemoteVerifier is the capability the gossip layer exposes for asking one
// peer to cast its Tier-3 vote over a direct stream.
type RemoteVerifier interface {
	RequestVote(ctx context.Context, peerID, taskID string) (RemoteVote, error)
}

// RequestVotes asks every peer for its vote concurrently and pushes each
// successful reply onto votesCh as it arrives, so VoteCollector.Collect can
// start aggregating before every peer has responded. A peer that errors or
// never replies before ctx is done just doesn't contribute a vote; it never
// fails the quorum for the others. votesCh is closed once every request has
// settled.
func RequestVotes(ctx context.Context, rv RemoteVerifier, taskID string, peerIDs []string) <-chan RemoteVote {
	votesCh := make(chan RemoteVote, len(peerIDs))

	group, gctx := errgroup.WithContext(ctx)
	for _, peerID := range peerIDs {
		peerID := peerID
		group.Go(func() error {
			vote, err := rv.RequestVote(gctx, peerID, taskID)
			if err != nil {
				return nil
			}
			select {
			case votesCh <- vote:
			case <-gctx.Done():
			}
			return nil
		})
	}

	go func() {
		_ = group.Wait()
		close(votesCh)
	}()

	return votesCh
}
