package server

import (
	"net"

	"github.com/tempuskv/tempuskv/internal/command"
	"github.com/tempuskv/tempuskv/internal/resp"
	"github.com/tempuskv/tempuskv/internal/txn"
)

// Client is one connected socket's state: its RESP reader/writer, the
// database it has SELECTed, its MULTI/EXEC/WATCH state, and its pending
// blocking-command registration, if any. reader is used only by readLoop's
// goroutine and writer only by writeLoop's; conn, outbox and closed are
// shared through their own synchronization; every other field is only ever
// touched from the reactor goroutine (see server.go's doc comment), so
// Client itself carries no lock.
type Client struct {
	id   int64
	conn net.Conn
	srv  *Server

	reader *resp.Reader
	writer *resp.Writer

	dbID int
	txn  *txn.State

	outbox chan command.Reply
	closed chan struct{}
}

func newClient(id int64, conn net.Conn, srv *Server) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		srv:    srv,
		reader: resp.NewReader(conn),
		writer: resp.NewWriter(conn),
		txn:    txn.NewState(id),
		outbox: make(chan command.Reply, 256),
		closed: make(chan struct{}),
	}
}

// ID implements pubsub.Subscriber.
func (c *Client) ID() int64 { return c.id }

// SendMessage implements pubsub.Subscriber for an exact-channel delivery.
func (c *Client) SendMessage(channel string, payload []byte) {
	c.deliver(command.Array(
		command.BulkString("message"),
		command.BulkString(channel),
		command.Bulk(payload),
	))
}

// SendPMessage implements pubsub.Subscriber for a pattern-match delivery.
func (c *Client) SendPMessage(pattern, channel string, payload []byte) {
	c.deliver(command.Array(
		command.BulkString("pmessage"),
		command.BulkString(pattern),
		command.BulkString(channel),
		command.Bulk(payload),
	))
}

func (c *Client) deliver(reply command.Reply) {
	select {
	case c.outbox <- reply:
	case <-c.closed:
	}
}

// readLoop decodes commands off the socket and posts them to the server's
// inbox; it never touches keyspace state itself.
func (c *Client) readLoop() {
	defer c.close()
	for {
		argv, err := c.reader.ReadCommand()
		if err != nil {
			return
		}
		if len(argv) == 0 {
			continue
		}
		c.srv.post(c, argv)
	}
}

// writeLoop is the only goroutine that ever writes to the socket, so a
// slow reader on the other end never blocks the reactor goroutine that
// computed the reply.
func (c *Client) writeLoop() {
	for {
		select {
		case reply := <-c.outbox:
			if err := resp.WriteReply(c.writer, reply); err != nil {
				return
			}
			if err := c.writer.Flush(); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Client) close() {
	select {
	case <-c.closed:
		return
	default:
		close(c.closed)
	}
	_ = c.conn.Close()
	c.srv.removeClient(c)
}
