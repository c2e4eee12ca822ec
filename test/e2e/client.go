package e2e

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Client speaks the disk protocol over one connection.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to a server on localhost.
func Dial(port int) (*Client, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes raw bytes and returns the next status line without its
// trailing newline.
func (c *Client) Send(raw string) (string, error) {
	if err := c.conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return "", err
	}
	if _, err := io.WriteString(c.conn, raw); err != nil {
		return "", err
	}
	return c.readLine()
}

func (c *Client) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// Store sends STORE with data as the payload in the same write.
func (c *Client) Store(name string, data []byte) (string, error) {
	return c.Send(fmt.Sprintf("STORE %s %d\n%s", name, len(data), data))
}

// Read sends READ and returns the status line, the reported blob size and
// the payload.
func (c *Client) Read(name string, offset, length int) (string, int, []byte, error) {
	status, err := c.Send(fmt.Sprintf("READ %s %d %d\n", name, offset, length))
	if err != nil {
		return "", 0, nil, err
	}

	size, ok := strings.CutPrefix(status, "ACK ")
	if !ok {
		return status, 0, nil, nil
	}
	total, err := strconv.Atoi(size)
	if err != nil {
		return status, 0, nil, fmt.Errorf("malformed READ header %q", status)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.reader, data); err != nil {
		return status, total, nil, err
	}
	return status, total, data, nil
}

// Delete sends DELETE.
func (c *Client) Delete(name string) (string, error) {
	return c.Send(fmt.Sprintf("DELETE %s\n", name))
}

// Dir sends DIR and returns the listed names.
func (c *Client) Dir() ([]string, error) {
	status, err := c.Send("DIR\n")
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(status)
	if err != nil {
		return nil, fmt.Errorf("malformed DIR header %q", status)
	}

	names := make([]string, 0, count)
	for range count {
		name, err := c.readLine()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
