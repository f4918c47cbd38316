package chat

import (
	"context"
	"testing"

	"bookbridge-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupChatDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Conversation{}, &domain.Message{}))
	return db
}

func chatUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	u := &domain.User{Email: name + "@test.com", PasswordHash: "x", FullName: name, Role: domain.RoleParent}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestFindOrCreateConversation_DedupByParticipantSet(t *testing.T) {
	db := setupChatDB(t)
	alice := chatUser(t, db, "alice")
	bob := chatUser(t, db, "bob")
	carol := chatUser(t, db, "carol")

	pair, err := FindOrCreateConversation(db, alice.ID, bob.ID)
	require.NoError(t, err)

	// Same pair in either order reuses the thread.
	same, err := FindOrCreateConversation(db, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.ID, same.ID)

	// A superset is a different thread, not a match on the pair.
	group, err := FindOrCreateConversation(db, alice.ID, bob.ID, carol.ID)
	require.NoError(t, err)
	assert.NotEqual(t, pair.ID, group.ID)

	var count int64
	db.Model(&domain.Conversation{}).Count(&count)
	assert.Equal(t, int64(2), count)

	_, err = FindOrCreateConversation(db, alice.ID)
	require.Error(t, err)
}

func TestPostSystemMessage(t *testing.T) {
	db := setupChatDB(t)
	alice := chatUser(t, db, "alice")
	bob := chatUser(t, db, "bob")

	conv, err := FindOrCreateConversation(db, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, PostSystemMessage(db, conv.ID, "Swap accepted."))

	var msg domain.Message
	require.NoError(t, db.First(&msg, "conversation_id = ?", conv.ID).Error)
	assert.True(t, msg.IsSystem)
	assert.Nil(t, msg.SenderID)
	assert.Equal(t, "Swap accepted.", msg.Content)
}

func TestSendMessage_ParticipantsOnly(t *testing.T) {
	db := setupChatDB(t)
	svc := &Service{DB: db}
	alice := chatUser(t, db, "alice")
	bob := chatUser(t, db, "bob")
	carol := chatUser(t, db, "carol")

	conv, err := svc.StartConversation(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	sent, err := svc.SendMessage(context.Background(), alice.ID, conv.ID, "Bado iko?")
	require.NoError(t, err)
	assert.False(t, sent.IsSystem)

	_, err = svc.SendMessage(context.Background(), carol.ID, conv.ID, "hello")
	require.Error(t, err)
	assert.Equal(t, "Not a participant in this conversation", err.Error())

	_, err = svc.SendMessage(context.Background(), alice.ID, conv.ID, "   ")
	require.Error(t, err)
	assert.Equal(t, "Message content is required", err.Error())
}

func TestStartConversation_SelfForbidden(t *testing.T) {
	db := setupChatDB(t)
	svc := &Service{DB: db}
	alice := chatUser(t, db, "alice")

	_, err := svc.StartConversation(context.Background(), alice.ID, alice.ID)
	require.Error(t, err)
	assert.Equal(t, "Cannot create conversation with yourself", err.Error())
}

func TestListConversations_RecentFirst(t *testing.T) {
	db := setupChatDB(t)
	svc := &Service{DB: db}
	alice := chatUser(t, db, "alice")
	bob := chatUser(t, db, "bob")
	carol := chatUser(t, db, "carol")

	_, err := svc.StartConversation(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.StartConversation(context.Background(), alice.ID, carol.ID)
	require.NoError(t, err)

	convs, err := svc.ListConversations(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	convs, err = svc.ListConversations(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}
