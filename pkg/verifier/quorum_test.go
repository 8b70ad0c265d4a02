package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRemoteVerifier struct {
	votes map[string]RemoteVote
	fail  map[string]bool
}

func (f *fakeRemoteVerifier) RequestVote(_ context.Context, peerID, _ string) (RemoteVote, error) {
	if f.fail[peerID] {
		return RemoteVote{}, errors.New("peer unreachable")
	}
	return f.votes[peerID], nil
}

func TestRequestVotesDeliversEverySuccessfulReply(t *testing.T) {
	rv := &fakeRemoteVerifier{
		votes: map[string]RemoteVote{
			"peer-a": {VerifierID: "peer-a", Passed: true, Score: 1.0},
			"peer-b": {VerifierID: "peer-b", Passed: true, Score: 0.9},
		},
	}

	votesCh := RequestVotes(context.Background(), rv, "task-1", []string{"peer-a", "peer-b"})

	var got []RemoteVote
	for v := range votesCh {
		got = append(got, v)
	}
	assert.Len(t, got, 2)
}

func TestRequestVotesSkipsFailedPeersWithoutBlocking(t *testing.T) {
	rv := &fakeRemoteVerifier{
		votes: map[string]RemoteVote{
			"peer-a": {VerifierID: "peer-a", Passed: true, Score: 1.0},
		},
		fail: map[string]bool{"peer-b": true},
	}

	votesCh := RequestVotes(context.Background(), rv, "task-1", []string{"peer-a", "peer-b"})

	select {
	case v, ok := <-votesCh:
		assert.True(t, ok)
		assert.Equal(t, "peer-a", v.VerifierID)
	case <-time.After(time.Second):
		t.Fatal("expected peer-a's vote without waiting on peer-b")
	}

	_, ok := <-votesCh
	assert.False(t, ok)
}
