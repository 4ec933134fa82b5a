package services

import (
	"context"
	"errors"
	"testing"

	"github.com/petalmail/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmailRepo struct {
	created   types.EmailMessage
	listedFor string
	viewedID  int64
	viewedBy  string
	deleteErr error
}

func (f *fakeEmailRepo) ListByRecipient(_ context.Context, recipient string) ([]types.EmailMessage, error) {
	f.listedFor = recipient
	return []types.EmailMessage{{ID: 1, Recipient: recipient}}, nil
}

func (f *fakeEmailRepo) GetVisible(_ context.Context, id int64, participant string) ([]types.EmailMessage, error) {
	f.viewedID, f.viewedBy = id, participant
	return []types.EmailMessage{}, nil
}

func (f *fakeEmailRepo) Create(_ context.Context, email types.EmailMessage) (types.EmailMessage, error) {
	f.created = email
	email.ID = 42
	return email, nil
}

func (f *fakeEmailRepo) DeleteReceived(_ context.Context, id int64, recipient string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return 1, nil
}

func TestEmailService_SendUsesCallerAsSender(t *testing.T) {
	repo := &fakeEmailRepo{}
	svc := NewEmailService(repo)

	sent, err := svc.Send(context.Background(), "bob@x.com", "carol@x.com", "hi", "there")
	require.NoError(t, err)

	assert.Equal(t, int64(42), sent.ID)
	assert.Equal(t, types.EmailMessage{
		Sender:    "bob@x.com",
		Recipient: "carol@x.com",
		Subject:   "hi",
		Body:      "there",
	}, repo.created)
}

func TestEmailService_InboxAndViewScopedToCaller(t *testing.T) {
	repo := &fakeEmailRepo{}
	svc := NewEmailService(repo)

	inbox, err := svc.Inbox(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
	assert.Equal(t, "bob@x.com", repo.listedFor)

	viewed, err := svc.View(context.Background(), 5, "bob@x.com")
	require.NoError(t, err)
	assert.Empty(t, viewed)
	assert.Equal(t, int64(5), repo.viewedID)
	assert.Equal(t, "bob@x.com", repo.viewedBy)
}

func TestEmailService_DeletePropagatesErrors(t *testing.T) {
	notFound := errors.New("not found")
	svc := NewEmailService(&fakeEmailRepo{deleteErr: notFound})

	_, err := svc.Delete(context.Background(), 3, "bob@x.com")
	assert.ErrorIs(t, err, notFound)
}
