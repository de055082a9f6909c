package websocket

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/stretchr/testify/require"
)

func TestNewMsg(t *testing.T) {
	t.Run("without data", func(t *testing.T) {
		msg, err := NewMsg(MsgTypePing, 12, nil)
		require.NoError(t, err)
		require.Equal(t, MsgTypePing, msg.Type)
		require.Equal(t, uint32(12), msg.RequestID)
		require.Empty(t, msg.Data)
		require.False(t, msg.Time.IsZero())
	})

	t.Run("with data", func(t *testing.T) {
		viewport := quadtree.NewRect(1, 2, 3, 4)
		msg, err := NewMsg(MsgTypeViewport, 1, ViewportRequest{Viewport: viewport})
		require.NoError(t, err)

		var req ViewportRequest
		require.NoError(t, msg.DataTo(&req))
		require.Equal(t, viewport, req.Viewport)
	})

	t.Run("unencodable data", func(t *testing.T) {
		_, err := NewMsg(MsgTypeFrame, 1, make(chan int))
		require.Error(t, err)
		require.Equal(t, ErrTypeMsgEncode, errors.Type(err))
	})
}

func TestMsgDataTo(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		var req ViewportRequest
		err := Msg{Type: MsgTypeViewport}.DataTo(&req)
		require.Error(t, err)
		require.Equal(t, ErrTypeMsgDecode, errors.Type(err))
	})

	t.Run("bad data", func(t *testing.T) {
		var req ViewportRequest
		err := Msg{Type: MsgTypeViewport, Data: []byte(`{"viewport":"left"}`)}.DataTo(&req)
		require.Error(t, err)
		require.Equal(t, ErrTypeMsgDecode, errors.Type(err))
	})
}
