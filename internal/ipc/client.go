package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// EnqueueQuery adds a legal query to the offline queue.
func (c *Client) EnqueueQuery(req EnqueueQueryRequest) (*EnqueueQueryResponse, error) {
	var resp EnqueueQueryResponse
	if err := c.client.Call("LexSync.EnqueueQuery", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EnqueueDocument adds a document upload to the offline queue.
func (c *Client) EnqueueDocument(req EnqueueDocumentRequest) (*EnqueueDocumentResponse, error) {
	var resp EnqueueDocumentResponse
	if err := c.client.Call("LexSync.EnqueueDocument", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns pending items, optionally narrowed to one kind.
func (c *Client) List(kind string) (*ListResponse, error) {
	var resp ListResponse
	if err := c.client.Call("LexSync.List", ListRequest{Kind: kind}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns per-status counts for both collections.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.client.Call("LexSync.Stats", StatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Drain triggers a drain of one collection.
func (c *Client) Drain(kind string) (*DrainResponse, error) {
	var resp DrainResponse
	if err := c.client.Call("LexSync.Drain", DrainRequest{Kind: kind}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sync triggers an immediate drain of both collections.
func (c *Client) Sync() (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.client.Call("LexSync.Sync", SyncRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCompleted removes completed items from both collections.
func (c *Client) ClearCompleted() (*ClearCompletedResponse, error) {
	var resp ClearCompletedResponse
	if err := c.client.Call("LexSync.ClearCompleted", ClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("LexSync.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("LexSync.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
