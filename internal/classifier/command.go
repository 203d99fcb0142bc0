package classifier

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/tbmap/tbmap/internal/model"
)

// MethodSuggestBatch is the JSON-RPC method a classifier program must serve.
const MethodSuggestBatch = "suggest_batch"

// DefaultCallTimeout bounds a single batch call when the context has no
// deadline of its own.
const DefaultCallTimeout = 60 * time.Second

// ErrProcessExited is returned for calls pending when the program exits.
var ErrProcessExited = errors.New("classifier process exited unexpectedly")

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("classifier error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// BatchParams is the params object of a suggest_batch call.
type BatchParams struct {
	Token   string        `json:"token,omitempty"`
	Ledgers []Request     `json:"ledgers"`
	Masters model.Masters `json:"masters"`
}

// Command is a classifier backed by a long-running program that reads
// newline-delimited JSON-RPC requests on stdin and answers on stdout.
// Concurrent Classify calls share the process.
type Command struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	reader  *bufio.Reader
	mu      sync.Mutex
	nextID  int
	pending map[int]chan *rpcResponse
	done    chan struct{}
	timeout time.Duration
}

// StartCommand launches the classifier program.
func StartCommand(name string, args ...string) (*Command, error) {
	return startCommand(exec.Command(name, args...))
}

func startCommand(cmd *exec.Cmd) (*Command, error) {
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start classifier: %w", err)
	}

	c := &Command{
		cmd:     cmd,
		stdin:   stdin,
		reader:  bufio.NewReader(stdout),
		pending: make(map[int]chan *rpcResponse),
		done:    make(chan struct{}),
		timeout: DefaultCallTimeout,
	}
	go c.readLoop()
	return c, nil
}

// SetTimeout changes the per-call timeout.
func (c *Command) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Classify implements Classifier. The token travels in the call params.
func (c *Command) Classify(ctx context.Context, creds Credentials, batch []Request, masters model.Masters) ([]Result, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan *rpcResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(rpcRequest{
		JSONRPC: "2.0",
		Method:  MethodSuggestBatch,
		Params:  BatchParams{Token: creds.Token, Ledgers: batch, Masters: masters},
		ID:      id,
	}); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		var results []Result
		if err := json.Unmarshal(resp.Result, &results); err != nil {
			return nil, fmt.Errorf("decoding classifier results: %w", err)
		}
		return results, nil
	case <-c.done:
		return nil, ErrProcessExited
	case <-ctx.Done():
		return nil, fmt.Errorf("classifier call: %w", ctx.Err())
	}
}

// Close sends the shutdown notification and waits for the program to exit.
func (c *Command) Close() error {
	_ = c.send(rpcRequest{JSONRPC: "2.0", Method: "shutdown"})
	_ = c.stdin.Close()
	return c.cmd.Wait()
}

func (c *Command) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	c.mu.Lock()
	_, err = fmt.Fprintf(c.stdin, "%s\n", data)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing to classifier: %w", err)
	}
	return nil
}

func (c *Command) readLoop() {
	defer close(c.done)
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return
		}

		var msg rpcResponse
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		id := toInt(msg.ID)
		c.mu.Lock()
		ch, ok := c.pending[id]
		if ok {
			delete(c.pending, id)
		}
		c.mu.Unlock()
		if ok {
			ch <- &msg
		}
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
