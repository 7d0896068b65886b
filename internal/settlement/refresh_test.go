package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/settlement/repo"
)

type fakeCredentialLister struct {
	users []repo.CredentialUser
	err   error
}

func (f *fakeCredentialLister) ListCredentialUsers(context.Context) ([]repo.CredentialUser, error) {
	return f.users, f.err
}

type fakeRefresher struct {
	failFor map[string]error
	calls   []string
}

func (f *fakeRefresher) RefreshUser(_ context.Context, userID string) error {
	f.calls = append(f.calls, userID)
	return f.failFor[userID]
}

func TestRefreshRunCountsOutcomes(t *testing.T) {
	store := &fakeCredentialLister{users: []repo.CredentialUser{
		{UserID: "u1", HasRefreshToken: true},
		{UserID: "u2", HasRefreshToken: false},
		{UserID: "u3", HasRefreshToken: true},
	}}
	venue := &fakeRefresher{failFor: map[string]error{"u3": errors.New("invalid_grant")}}

	c := NewRefreshCycle(zap.NewNop(), store, venue)
	sum := c.Run(context.Background())

	assert.Equal(t, RefreshSummary{Refreshed: 1, Skipped: 1, Failed: 1}, sum)
	// quem não tem refresh token nem chega na rede
	assert.Equal(t, []string{"u1", "u3"}, venue.calls)
}

func TestRefreshRunEmpty(t *testing.T) {
	c := NewRefreshCycle(zap.NewNop(), &fakeCredentialLister{}, &fakeRefresher{})
	assert.Equal(t, RefreshSummary{}, c.Run(context.Background()))
}

func TestRefreshRunListFailure(t *testing.T) {
	store := &fakeCredentialLister{err: errors.New("pg down")}
	venue := &fakeRefresher{}

	c := NewRefreshCycle(zap.NewNop(), store, venue)
	sum := c.Run(context.Background())

	assert.Equal(t, RefreshSummary{}, sum)
	assert.Empty(t, venue.calls)
}
