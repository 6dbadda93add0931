package ftp

import (
	"context"
	"io"
	"os"

	"github.com/coldwire/goftp/internal/ratelimit"
)

// transferResult carries a finished data-stream's outcome back to the
// caller without either side holding a pointer to the other (spec §9
// Design Note 1: "message-passing, no back-reference cycles").
type transferResult struct {
	copied int64
	err    error
}

// runTransfer opens a data connection for cmd, pumps body through fn, and
// always finishes the data connection (close + read the control channel's
// completion reply) before returning. fn never sees the Client.
func (c *Client) runTransfer(cmd, remotePath string, fn func(dataConn io.ReadWriteCloser) (int64, error)) (int64, error) {
	if err := c.acquireDataSlot(context.Background()); err != nil {
		return 0, err
	}
	defer c.releaseDataSlot()

	_, dataConn, err := c.cmdDataConnFrom(cmd, remotePath)
	if err != nil {
		return 0, err
	}

	resultCh := make(chan transferResult, 1)
	go func() {
		n, copyErr := fn(dataConn)
		resultCh <- transferResult{copied: n, err: copyErr}
	}()
	result := <-resultCh

	finishErr := c.finishDataConn(dataConn)

	if result.err != nil {
		return result.copied, transportErr(cmd, result.err)
	}
	if finishErr != nil {
		return result.copied, finishErr
	}
	return result.copied, nil
}

func (c *Client) limiter() *ratelimit.Limiter {
	return ratelimit.New(c.cfg.BandwidthLimitBytesPerSecond)
}

// Store uploads data from r to remotePath in binary mode (TYPE I).
func (c *Client) Store(remotePath string, r io.Reader) error {
	if err := c.Type(ModeBinary); err != nil {
		return err
	}

	r = ratelimit.NewReader(r, c.limiter())

	_, err := c.runTransfer("STOR", remotePath, func(dataConn io.ReadWriteCloser) (int64, error) {
		return io.Copy(dataConn, r)
	})
	return err
}

// StoreFrom uploads a local file to remotePath. Convenience wrapper
// around Store.
func (c *Client) StoreFrom(remotePath, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return transportErr("open local file", err)
	}
	defer file.Close()

	return c.Store(remotePath, file)
}

// Retrieve downloads remotePath into w in binary mode (TYPE I).
func (c *Client) Retrieve(remotePath string, w io.Writer) error {
	if err := c.Type(ModeBinary); err != nil {
		return err
	}

	w = ratelimit.NewWriter(w, c.limiter())

	_, err := c.runTransfer("RETR", remotePath, func(dataConn io.ReadWriteCloser) (int64, error) {
		return io.Copy(w, dataConn)
	})
	return err
}

// RetrieveTo downloads remotePath to a local file. Convenience wrapper
// around Retrieve.
func (c *Client) RetrieveTo(remotePath, localPath string) error {
	file, err := os.Create(localPath)
	if err != nil {
		return transportErr("create local file", err)
	}
	defer file.Close()

	return c.Retrieve(remotePath, file)
}

// Append appends data from r to remotePath (creating it if absent), in
// binary mode (TYPE I).
func (c *Client) Append(remotePath string, r io.Reader) error {
	if err := c.Type(ModeBinary); err != nil {
		return err
	}

	r = ratelimit.NewReader(r, c.limiter())

	_, err := c.runTransfer("APPE", remotePath, func(dataConn io.ReadWriteCloser) (int64, error) {
		return io.Copy(dataConn, r)
	})
	return err
}

// GetFileSize returns the size of a remote file via SIZE. Convenience
// alias over Size matching the spec's external-interface naming.
func (c *Client) GetFileSize(remotePath string) (int64, error) {
	return c.Size(remotePath)
}
