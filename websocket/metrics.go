package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadspace/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected /watch clients.",
	}, []string{"public_endpoint"})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from /watch clients.",
	}, []string{"public_endpoint", "msg_type"})

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_bytes",
		Help: "The number of bytes received from /watch clients.",
	}, []string{"public_endpoint"})

	wsReceiveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occurred while receiving a /watch message.",
	}, []string{"public_endpoint", "error_type"})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to /watch clients.",
	}, []string{"public_endpoint", "msg_type"})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to /watch clients.",
	}, []string{"public_endpoint", "msg_type"})

	wsSendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occurred while sending a /watch message.",
	}, []string{"public_endpoint", "msg_type", "error_type"})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ws_msg_latency",
		Help:    "The time to handle a client message or a world frame.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{"public_endpoint", "msg_type"})
)

// HandlerWithMetrics decorates h with Prometheus metrics labelled with
// publicEndpoint.
func HandlerWithMetrics(h Handler, publicEndpoint string) Handler {
	return &handlerWithMetrics{
		Handler:        h,
		publicEndpoint: publicEndpoint,
	}
}

type handlerWithMetrics struct {
	Handler

	publicEndpoint string
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	wsConnectedClients.WithLabelValues(h.publicEndpoint).Inc()
	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	defer h.observeLatency(MsgTypePing, time.Now())
	return h.Handler.HandlePing(ctx, respond, msg)
}

func (h *handlerWithMetrics) HandleViewport(ctx context.Context, respond ResponseSender, msg Msg) error {
	defer h.observeLatency(MsgTypeViewport, time.Now())
	return h.Handler.HandleViewport(ctx, respond, msg)
}

func (h *handlerWithMetrics) HandleFrame(ctx context.Context, respond ResponseSender, f models.Frame) error {
	defer h.observeLatency(MsgTypeFrame, time.Now())
	return h.Handler.HandleFrame(ctx, respond, f)
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedClients.WithLabelValues(h.publicEndpoint).Dec()
	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		wsReceivedBytes.WithLabelValues(h.publicEndpoint).Add(float64(n))

		if err != nil {
			wsReceiveErrors.WithLabelValues(h.publicEndpoint, errors.Type(err)).Inc()
			return msg, n, err
		}

		wsReceivedMsgs.WithLabelValues(h.publicEndpoint, string(msg.Type)).Inc()
		return msg, n, nil
	}
}

func (h *handlerWithMetrics) Sender() Sender {
	send := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := string(msg.Type)

		n, err := send(msg)
		if err != nil {
			wsSendErrors.WithLabelValues(h.publicEndpoint, msgType, errors.Type(err)).Inc()
			return n, err
		}

		wsSentMsgs.WithLabelValues(h.publicEndpoint, msgType).Inc()
		wsSentBytes.WithLabelValues(h.publicEndpoint, msgType).Add(float64(n))
		return n, nil
	}
}

func (h *handlerWithMetrics) observeLatency(msgType MsgType, start time.Time) {
	wsMsgLatency.
		WithLabelValues(h.publicEndpoint, string(msgType)).
		Observe(time.Since(start).Seconds())
}
