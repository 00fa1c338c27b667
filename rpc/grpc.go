// Package rpc provides the RPC collaborator behind Grpc nodes: a
// generic unary gRPC invoker exchanging JSON payloads, so graph
// documents can name services without generated stubs.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodecName is the content-subtype negotiated for JSON framing.
// The server side must register a matching codec.
const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// GRPCInvoker dials targets lazily and keeps one client connection per
// target. Method names follow the full gRPC form
// "/package.Service/Method"; a bare "Service/Method" is normalized.
type GRPCInvoker struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
	opts  []grpc.DialOption
}

// NewGRPCInvoker creates an invoker. Without explicit dial options it
// uses plaintext transport, the fit for in-cluster service meshes;
// pass credentials for anything crossing a trust boundary.
func NewGRPCInvoker(opts ...grpc.DialOption) *GRPCInvoker {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	return &GRPCInvoker{conns: make(map[string]*grpc.ClientConn), opts: opts}
}

// Invoke performs a unary call, sending payload as JSON and decoding
// the JSON reply into a map.
func (g *GRPCInvoker) Invoke(ctx context.Context, target, method string, payload map[string]any) (any, error) {
	conn, err := g.conn(target)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(method, "/") {
		method = "/" + method
	}

	if payload == nil {
		payload = map[string]any{}
	}
	var reply map[string]any
	if err := conn.Invoke(ctx, method, payload, &reply, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, fmt.Errorf("grpc call %s%s: %w", target, method, err)
	}
	return reply, nil
}

func (g *GRPCInvoker) conn(target string) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if conn, ok := g.conns[target]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(target, g.opts...)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}
	g.conns[target] = conn
	return conn, nil
}

// Close tears down every cached connection.
func (g *GRPCInvoker) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var firstErr error
	for target, conn := range g.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(g.conns, target)
	}
	return firstErr
}
