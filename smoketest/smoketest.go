package smoketest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadspace/quadtree"
	qwebsocket "github.com/aukilabs/quadspace/websocket"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeSmokeTestFailed = "smoke_test_failed"

	defaultTimeout = time.Second * 5
)

type Options struct {
	// The /watch endpoint to test, with a ws or wss scheme.
	Endpoint string

	UserAgent string

	// The area requested to the server.
	Viewport quadtree.Rect

	// The maximum duration of a run.
	Timeout time.Duration
}

// Request optionally overrides the endpoint and timeout of a smoke test.
type Request struct {
	Endpoint string        `json:"endpoint,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Result describes a smoke test run.
type Result struct {
	Endpoint    string        `json:"endpoint"`
	Success     bool          `json:"success"`
	Duration    time.Duration `json:"duration"`
	FrameNumber uint64        `json:"frame_number,omitempty"`
	Entities    int           `json:"entities"`
	Error       string        `json:"error,omitempty"`
}

// Run connects to the endpoint, sends a ping and a viewport, and waits for
// the matching pong and frame.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	res := Result{Endpoint: opts.Endpoint}

	frame, err := run(ctx, opts)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res, errors.New("smoke test failed").
			WithType(ErrTypeSmokeTestFailed).
			WithTag("endpoint", opts.Endpoint).
			Wrap(err)
	}

	res.Success = true
	res.FrameNumber = frame.Number
	res.Entities = frame.Total
	return res, nil
}

func run(ctx context.Context, opts Options) (qwebsocket.Frame, error) {
	origin := strings.Replace(opts.Endpoint, "ws", "http", 1)
	config, err := websocket.NewConfig(opts.Endpoint, origin)
	if err != nil {
		return qwebsocket.Frame{}, errors.New("creating websocket config failed").Wrap(err)
	}
	if opts.UserAgent != "" {
		config.Header.Set("User-Agent", opts.UserAgent)
	}

	conn, err := config.DialContext(ctx)
	if err != nil {
		return qwebsocket.Frame{}, errors.New("dialing endpoint failed").Wrap(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := roundTrip(conn, qwebsocket.MsgTypePing, 1, nil, qwebsocket.MsgTypePong); err != nil {
		return qwebsocket.Frame{}, err
	}

	res, err := roundTrip(conn, qwebsocket.MsgTypeViewport, 2, qwebsocket.ViewportRequest{
		Viewport: opts.Viewport,
	}, qwebsocket.MsgTypeFrame)
	if err != nil {
		return qwebsocket.Frame{}, err
	}

	var frame qwebsocket.Frame
	if err := res.DataTo(&frame); err != nil {
		return qwebsocket.Frame{}, err
	}
	return frame, nil
}

// roundTrip sends a request and waits for the response with the same request
// id.
func roundTrip(conn *websocket.Conn, msgType qwebsocket.MsgType, requestID uint32, v any, resType qwebsocket.MsgType) (qwebsocket.Msg, error) {
	req, err := qwebsocket.NewMsg(msgType, requestID, v)
	if err != nil {
		return qwebsocket.Msg{}, err
	}

	if _, err := qwebsocket.Send(conn, req); err != nil {
		return qwebsocket.Msg{}, errors.New("sending message failed").
			WithTag("msg_type", msgType).
			Wrap(err)
	}

	for {
		res, _, err := qwebsocket.Receive(conn)
		if err != nil {
			return qwebsocket.Msg{}, errors.New("receiving message failed").
				WithTag("msg_type", resType).
				Wrap(err)
		}

		if res.RequestID != requestID {
			continue
		}

		if res.Type == qwebsocket.MsgTypeError {
			var errRes qwebsocket.ErrorResponse
			res.DataTo(&errRes)
			return qwebsocket.Msg{}, errors.New(errRes.Message).
				WithType(errRes.Code).
				WithTag("msg_type", msgType)
		}

		if res.Type == resType {
			return res, nil
		}
	}
}

// HandleSmokeTest runs a smoke test against the configured endpoint and
// writes its result as JSON.
func HandleSmokeTest(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			writeResult(w, http.StatusBadRequest, Result{
				Error: errors.New("reading body failed").Wrap(err).Error(),
			})
			return
		}

		opts := opts
		if len(b) != 0 {
			var req Request
			if err := json.Unmarshal(b, &req); err != nil {
				writeResult(w, http.StatusBadRequest, Result{
					Error: errors.New("decoding body failed").Wrap(err).Error(),
				})
				return
			}

			if req.Endpoint != "" {
				opts.Endpoint = req.Endpoint
			}
			if req.Timeout > 0 {
				opts.Timeout = req.Timeout
			}
		}

		res, err := Run(r.Context(), opts)
		if err != nil {
			logs.WithTag("endpoint", opts.Endpoint).
				Warn(err)
			writeResult(w, http.StatusServiceUnavailable, res)
			return
		}

		logs.WithTag("endpoint", opts.Endpoint).
			WithTag("duration", res.Duration).
			WithTag("entities", res.Entities).
			Info("smoke test succeeded")
		writeResult(w, http.StatusOK, res)
	}
}

func writeResult(w http.ResponseWriter, status int, res Result) {
	b, err := json.Marshal(res)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
