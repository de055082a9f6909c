package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadspace/models"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 32
)

// Handler represents a /watch connection handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to watch an area of the world.
	HandleViewport(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a world frame.
	HandleFrame(ctx context.Context, respond ResponseSender, f models.Frame) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Registers h to be called on every world frame. The returned function
	// stops the calls.
	Subscribe(h func(models.Frame)) (cancel func())

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender used to send queued messages.
	Sender() Sender

	// Closes the handler and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// The client id.
	GetClientID() string
}

// Handle serves conn with h until the client disconnects or ctx is done.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The connection handler.
	Handler Handler

	sendChan       chan Msg
	receiveChan    chan Msg
	frameChan      chan models.Frame
	sender         Sender
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	// Frames are dropped while the previous one is still being handled.
	h.frameChan = make(chan models.Frame, 1)
	unsubscribe := h.Handler.Subscribe(func(f models.Frame) {
		select {
		case h.frameChan <- f:
		default:
		}
	})
	defer unsubscribe()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	responder := responseSender{
		ctx:      ctx,
		sendChan: h.sendChan,
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.handleDisconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case f := <-h.frameChan:
			if err := h.Handler.HandleFrame(ctx, responder, f); err != nil {
				h.disconnect(errors.New("handling frame failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	wg.Wait()
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		msg, _, err := h.receiver()
		if err != nil {
			h.disconnect(errors.New("receiving message failed").Wrap(err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case h.receiveChan <- msg:
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg Msg, responder ResponseSender) error {
	switch msg.Type {
	case MsgTypePing:
		return h.Handler.HandlePing(ctx, responder, msg)

	case MsgTypeViewport:
		return h.Handler.HandleViewport(ctx, responder, msg)

	default:
		return errors.New("unsupported message type").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", msg.Type)
	}
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	ctx      context.Context
	sendChan chan<- Msg
}

func (r responseSender) Send(msg Msg) {
	select {
	case r.sendChan <- msg:
	case <-r.ctx.Done():
	}
}
