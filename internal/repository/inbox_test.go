package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"integrity-responder/internal/domain"
)

func TestListConversations_AggregatesAndOrders(t *testing.T) {
	s, db := newTestStore(t)
	seedConversation(t, db, "quiet", baseTime.Add(3*time.Hour))
	seedConversation(t, db, "older", baseTime)
	seedConversation(t, db, "newer", baseTime.Add(time.Hour))

	seedMessage(t, db, domain.Message{ID: "o1", ConversationID: "older", Content: "hello", CreatedAt: baseTime.Add(time.Minute)})
	seedMessage(t, db, domain.Message{ID: "o2", ConversationID: "older", Content: "auto reply", SenderType: domain.SenderBot, IsAutomated: true, IsRead: true, CreatedAt: baseTime.Add(2 * time.Minute)})
	seedMessage(t, db, domain.Message{ID: "n1", ConversationID: "newer", Content: "is it free?", CreatedAt: baseTime.Add(90 * time.Minute)})

	out, err := s.ListConversations(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, out, 3)

	require.Equal(t, "newer", out[0].ID)
	require.Equal(t, 1, out[0].MessageCount)
	require.Equal(t, 0, out[0].AutomatedCount)
	require.Equal(t, 1, out[0].UnreadCount)
	require.NotNil(t, out[0].LastMessage)
	require.Equal(t, "is it free?", *out[0].LastMessage)
	require.NotNil(t, out[0].LastMessageAt)
	require.True(t, out[0].LastMessageAt.Equal(baseTime.Add(90*time.Minute)))

	require.Equal(t, "older", out[1].ID)
	require.Equal(t, 2, out[1].MessageCount)
	require.Equal(t, 1, out[1].AutomatedCount)
	require.Equal(t, 1, out[1].UnreadCount)
	require.Equal(t, "auto reply", *out[1].LastMessage)
	require.Equal(t, "Guest older", out[1].GuestName)

	// No messages: sorted last even though created most recently.
	require.Equal(t, "quiet", out[2].ID)
	require.Zero(t, out[2].MessageCount)
	require.Nil(t, out[2].LastMessage)
	require.Nil(t, out[2].LastMessageAt)
}

func TestListConversations_TiedLastMessageYieldsOneRow(t *testing.T) {
	s, db := newTestStore(t)
	seedConversation(t, db, "c1", baseTime)
	seedMessage(t, db, domain.Message{ID: "a", ConversationID: "c1", Content: "first", CreatedAt: baseTime.Add(time.Minute)})
	seedMessage(t, db, domain.Message{ID: "b", ConversationID: "c1", Content: "second", CreatedAt: baseTime.Add(time.Minute)})

	out, err := s.ListConversations(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 2, out[0].MessageCount)
	require.Equal(t, "second", *out[0].LastMessage)
}

func TestListConversations_Limit(t *testing.T) {
	s, db := newTestStore(t)
	seedConversation(t, db, "c1", baseTime)
	seedConversation(t, db, "c2", baseTime.Add(time.Minute))

	out, err := s.ListConversations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "c2", out[0].ID)
}

func TestListConversations_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	out, err := s.ListConversations(context.Background(), 50)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestGetMessages_OldestFirst(t *testing.T) {
	s, db := newTestStore(t)
	seedConversation(t, db, "c1", baseTime)
	seedConversation(t, db, "c2", baseTime)
	seedMessage(t, db, domain.Message{ID: "m2", ConversationID: "c1", Content: "second", CreatedAt: baseTime.Add(2 * time.Minute)})
	seedMessage(t, db, domain.Message{ID: "m1", ConversationID: "c1", Content: "first", CreatedAt: baseTime.Add(time.Minute)})
	seedMessage(t, db, domain.Message{ID: "x", ConversationID: "c2", Content: "other", CreatedAt: baseTime})

	msgs, err := s.GetMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Content)
	require.Equal(t, "second", msgs[1].Content)
}

func TestGetMessages_UnknownConversation(t *testing.T) {
	s, _ := newTestStore(t)
	msgs, err := s.GetMessages(context.Background(), "missing")
	require.NoError(t, err)
	require.NotNil(t, msgs)
	require.Empty(t, msgs)
}

func TestMarkRead_Idempotent(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	seedConversation(t, db, "c1", baseTime)
	seedMessage(t, db, domain.Message{ID: "m1", ConversationID: "c1", Content: "unread", CreatedAt: baseTime.Add(time.Minute)})
	seedMessage(t, db, domain.Message{ID: "m2", ConversationID: "c1", Content: "already read", IsRead: true, CreatedAt: baseTime.Add(2 * time.Minute)})

	updated, err := s.MarkRead(ctx, "c1")
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	out, err := s.ListConversations(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, 0, out[0].UnreadCount)
	require.True(t, out[0].IsRead)

	updated, err = s.MarkRead(ctx, "c1")
	require.NoError(t, err)
	require.Zero(t, updated)

	out, err = s.ListConversations(ctx, 50)
	require.NoError(t, err)
	require.Equal(t, 0, out[0].UnreadCount)

	msgs, err := s.GetMessages(ctx, "c1")
	require.NoError(t, err)
	for _, m := range msgs {
		require.True(t, m.IsRead)
	}
}
