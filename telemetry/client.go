// Package telemetry serves a live view of a solver run over a websocket,
// adapted from server/fastview's client: a single page that
// receives a stream of solve-progress snapshots (sweep/trial counts,
// residuals, root value) and renders them as they arrive. Unlike the
// original grid-world-specific server, this package knows nothing about
// any particular domain -- it only ever serializes Update values, so it
// can sit behind any of the solvers in this repository.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 1 * time.Second
	maxMessageSize = 8192
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// client publishes a stream of T to a single websocket connection,
// dropping updates that arrive faster than pubResolution since each
// update is a full idempotent snapshot rather than a delta.
type client[T any] struct {
	updates <-chan T
	ws      *websock
	rootCtx context.Context
}

// newClient upgrades an http request to a websocket and returns a
// publisher over it.
func newClient[T any](updates <-chan T, w http.ResponseWriter, r *http.Request) (*client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	return &client[T]{updates: updates, ws: newWebSocket(ws), rootCtx: r.Context()}, nil
}

// sync runs the read pump (to drive ping/pong handlers), ping/pong
// liveness check, and publish loop concurrently until any one of them
// exits, via errgroup so a disconnect or write error tears the others
// down promptly.
func (cli *client[T]) sync() error {
	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	group.Go(func() error { return cli.readMessages(groupCtx) })
	group.Go(func() error { return cli.pingPong(groupCtx) })
	group.Go(func() error { return cli.publish(groupCtx) })
	return group.Wait()
}

var errPongDeadlineExceeded = errors.New("telemetry client disconnect, pong deadline exceeded")

func (cli *client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	cli.ws.conn.SetPongHandler(func(_ string) error {
		pong <- struct{}{}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return errPongDeadlineExceeded
			}
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *client[T]) ping(ctx context.Context) error {
	return cli.ws.write(ctx, func(ws *websocket.Conn) error {
		if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil && isError(err) {
			return fmt.Errorf("ping failed: %w", err)
		}
		return nil
	})
}

func (cli *client[T]) readMessages(ctx context.Context) error {
	for {
		err := cli.ws.read(ctx, func(ws *websocket.Conn) error {
			_, _, readErr := ws.ReadMessage()
			return readErr
		})
		if err != nil {
			return err
		}
	}
}

func (cli *client[T]) publish(ctx context.Context) error {
	lastSync := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				continue
			}
			lastSync = time.Now()
			err := cli.ws.write(ctx, func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return fmt.Errorf("failed to set deadline: %w", err)
				}
				if err := ws.WriteJSON(update); err != nil && isError(err) {
					return fmt.Errorf("publish failed: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

const (
	readDeadline     = time.Second
	writeDeadline    = time.Second
	closeGracePeriod = 10 * time.Second
)

// errSockCongestion indicates too many waiters on the socket for one op.
var errSockCongestion = errors.New("telemetry: socket operation congested")

// websock serializes reads and writes to a single *websocket.Conn, which
// permits at most one concurrent reader and one concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	conn     *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{readSem: make(chan struct{}, 1), writeSem: make(chan struct{}, 1), conn: ws}
}

func (sock *websock) close() {
	sock.readSem <- struct{}{}
	sock.writeSem <- struct{}{}
	_ = sock.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sock.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	sock.conn.Close()
}

func (sock *websock) read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.conn)
	case <-time.After(readDeadline):
		return errSockCongestion
	}
}

func (sock *websock) write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.conn)
	case <-time.After(writeDeadline):
		return errSockCongestion
	}
}
