package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/petalmail/apiserver/internal/auth"
	"github.com/petalmail/apiserver/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyToken(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour)
	token, err := tokens.Issue(auth.Identity{UserID: 5, Username: "a", Email: "a@x.com", Role: auth.RoleUser})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, verifyToken(&out, tokens, token))
	assert.JSONEq(t, `{"userId":5,"username":"a","email":"a@x.com","role":4}`, out.String())

	err = verifyToken(&out, auth.NewTokenService("other", time.Hour), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

type stubBackend struct {
	messages []mq.Message
}

func (s *stubBackend) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (s *stubBackend) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubBackend) Close() error { return nil }

func TestTailEvents(t *testing.T) {
	backend := &stubBackend{messages: []mq.Message{
		{ID: "1", Data: []byte(`{"name":"email.sent"}`), Attributes: map[string]string{"event": "email.sent"}},
		{ID: "2", Data: []byte(`{"name":"jwt-error"}`), Attributes: map[string]string{"event": "jwt-error"}},
	}}

	var out bytes.Buffer
	require.NoError(t, tailEvents(context.Background(), backend, "petalmail.events", &out))
	assert.Equal(t, "email.sent {\"name\":\"email.sent\"}\njwt-error {\"name\":\"jwt-error\"}\n", out.String())
}

func TestTailEvents_LogBackendCannotSubscribe(t *testing.T) {
	err := tailEvents(context.Background(), mq.NewLogBackend(nil), "petalmail.events", &bytes.Buffer{})
	assert.ErrorIs(t, err, mq.ErrSubscribeUnsupported)
}
