package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	// The header where clients put their identifier.
	HeaderClientID = "X-Client-Id"

	ErrTypeMsgDecode       = "msg_decode_error"
	ErrTypeMsgEncode       = "msg_encode_error"
	ErrTypeInvalidViewport = "invalid_viewport"
)

type MsgType string

const (
	MsgTypePing     MsgType = "ping"
	MsgTypePong     MsgType = "pong"
	MsgTypeViewport MsgType = "viewport"
	MsgTypeFrame    MsgType = "frame"
	MsgTypeError    MsgType = "error"
)

// Msg is the envelope of every message exchanged on a /watch connection.
type Msg struct {
	Type      MsgType         `json:"type"`
	Time      time.Time       `json:"time"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg returns a message of the given type carrying v as data.
func NewMsg(t MsgType, requestID uint32, v any) (Msg, error) {
	msg := Msg{
		Type:      t,
		Time:      time.Now(),
		RequestID: requestID,
	}

	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return Msg{}, errors.New("encoding message data failed").
				WithType(ErrTypeMsgEncode).
				WithTag("msg_type", t).
				Wrap(err)
		}
		msg.Data = data
	}
	return msg, nil
}

// DataTo decodes the message data into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return errors.New("message has no data").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", m.Type)
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

// ViewportRequest asks the server to stream the entities inside Viewport.
type ViewportRequest struct {
	Viewport quadtree.Rect `json:"viewport"`
}

// Frame is the content of the world viewed by a client at a given frame.
type Frame struct {
	Number    uint64               `json:"number"`
	WorldUUID string               `json:"world_uuid"`
	Viewport  quadtree.Rect        `json:"viewport"`
	Total     int                  `json:"total"`
	Entities  []models.EntityState `json:"entities"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Receiver reads a message and returns it with the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender writes a message and returns the number of bytes written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to the connected client.
type ResponseSender interface {
	Send(Msg)
}

// Receive reads a JSON message from conn.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var b []byte
	if err := websocket.Message.Receive(conn, &b); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Msg{}, len(b), errors.New("decoding message failed").
			WithType(ErrTypeMsgDecode).
			Wrap(err)
	}
	return msg, len(b), nil
}

// Send writes msg to conn as a JSON text frame.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").
			WithType(ErrTypeMsgEncode).
			WithTag("msg_type", msg.Type).
			Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}
