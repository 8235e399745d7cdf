package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenBoundToSession(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := NewEphemeralSession("1")
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)

	_, err = m.EnsureToken(ctx, nil)
	assert.Error(t, err)
}

func TestApprovalLogValidate(t *testing.T) {
	valid := ApprovalLog{Module: "requisition", Ref: "REQUISITION#001", ActorID: 3, Action: ApprovalSend}
	assert.NoError(t, valid.Validate())

	missingRef := valid
	missingRef.Ref = "  "
	assert.Error(t, missingRef.Validate())

	missingActor := valid
	missingActor.ActorID = 0
	assert.Error(t, missingActor.Validate())
}
