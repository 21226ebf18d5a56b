package chat

import (
	"testing"

	"github.com/openagora/agora/internal/common/cnst"
	"github.com/openagora/agora/internal/common/errorx"
	"github.com/stretchr/testify/assert"
)

func int64p(v int64) *int64 { return &v }

func TestNewContext(t *testing.T) {
	ctx, err := NewContext("group", int64p(42))
	assert.NoError(t, err)
	assert.Equal(t, cnst.ContextGroup, ctx.Type)
	assert.Equal(t, "group:42", ctx.Topic())

	// forum ignores a supplied id
	ctx, err = NewContext("forum", int64p(9))
	assert.NoError(t, err)
	assert.Nil(t, ctx.ID)
	assert.Equal(t, "forum", ctx.Topic())

	// non-forum types require an id
	_, err = NewContext("thread", nil)
	assert.ErrorIs(t, err, errorx.ValidationError(""))

	// unknown type is rejected
	_, err = NewContext("channel", int64p(1))
	assert.ErrorIs(t, err, errorx.ValidationError(""))
}

func TestSubmission_Context(t *testing.T) {
	// no selector targets the forum
	ctx, err := (&Submission{Content: "hi"}).Context()
	assert.NoError(t, err)
	assert.Equal(t, cnst.ContextForum, ctx.Type)

	ctx, err = (&Submission{Content: "hi", GroupID: int64p(7)}).Context()
	assert.NoError(t, err)
	assert.Equal(t, cnst.ContextGroup, ctx.Type)
	assert.Equal(t, "group:7", ctx.Topic())

	ctx, err = (&Submission{Content: "hi", ThreadID: int64p(3)}).Context()
	assert.NoError(t, err)
	assert.Equal(t, "thread:3", ctx.Topic())

	ctx, err = (&Submission{Content: "hi", PostID: int64p(5)}).Context()
	assert.NoError(t, err)
	assert.Equal(t, "post:5", ctx.Topic())

	// two selectors are ambiguous
	_, err = (&Submission{Content: "hi", PostID: int64p(1), GroupID: int64p(2)}).Context()
	assert.ErrorIs(t, err, errorx.ValidationError(""))
}

func TestMessage_Context(t *testing.T) {
	m := &Message{ID: 1, GroupID: int64p(42)}
	assert.Equal(t, "group:42", m.Context().Topic())

	m = &Message{ID: 2}
	assert.Equal(t, "forum", m.Context().Topic())
}

func TestNewErrorPayload(t *testing.T) {
	p := NewErrorPayload(errorx.AuthFailure("token expired"))
	assert.Equal(t, cnst.ErrorTypeAuth, p.Type)
	assert.Contains(t, p.Message, "token expired")
	assert.False(t, p.Timestamp.IsZero())

	p = NewErrorPayload(errorx.AuthorizationFailure("not yours"))
	assert.Equal(t, cnst.ErrorTypeForbidden, p.Type)

	p = NewErrorPayload(errorx.Internal("boom", nil))
	assert.Equal(t, cnst.ErrorTypeServer, p.Type)
}
