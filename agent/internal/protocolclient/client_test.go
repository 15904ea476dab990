package protocolclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"beacon/agent/internal/crypto"
	"beacon/agent/internal/device"
	"beacon/agent/internal/fault"
)

// echoServer opens the request with codec, records it and answers with reply.
type echoServer struct {
	codec Codec
	got   map[string]any
	reply any
	err   error
}

func (s *echoServer) Send(_ context.Context, body []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	plain, err := s.codec.Decrypt(string(body))
	if err != nil {
		return nil, err
	}
	s.got = map[string]any{}
	if err := json.Unmarshal(plain, &s.got); err != nil {
		return nil, err
	}
	out, _ := json.Marshal(s.reply)
	sealed, err := s.codec.Encrypt(out)
	return []byte(sealed), err
}

func TestExchangeCodecs(t *testing.T) {
	engine, err := crypto.NewEngine()
	if err != nil {
		t.Fatal(err)
	}
	for name, codec := range map[string]Codec{"plain": PlainCodec{}, "engine": engine} {
		t.Run(name, func(t *testing.T) {
			srv := &echoServer{codec: codec, reply: CheckinResponse{Status: StatusSuccess, UUID: "srv-uuid"}}
			id := device.Identity{UUID: "local", Hostname: "box", Interfaces: []device.Interface{{Name: "eth0", IP: "10.0.0.2", Netmask: "255.255.255.0"}}}

			var resp CheckinResponse
			if err := New(srv, codec).Exchange(context.Background(), NewCheckin(id), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != StatusSuccess || resp.UUID != "srv-uuid" {
				t.Fatalf("resp = %+v", resp)
			}
			if srv.got["action"] != ActionCheckin || srv.got["host"] != "box" || srv.got["ip"] != "10.0.0.2" {
				t.Fatalf("request = %v", srv.got)
			}
		})
	}
}

type rawServer struct{ body []byte }

func (s rawServer) Send(context.Context, []byte) ([]byte, error) { return s.body, nil }

func TestExchangeFailures(t *testing.T) {
	ctx := context.Background()
	var resp GenericResponse

	err := New(&echoServer{err: fault.Transport("send", io.EOF)}, PlainCodec{}).Exchange(ctx, TaskListRequest{}, &resp)
	if !fault.Is(err, fault.KindTransport) {
		t.Fatalf("transport: %v", err)
	}

	err = New(rawServer{body: []byte("***")}, PlainCodec{}).Exchange(ctx, TaskListRequest{}, &resp)
	if !fault.Is(err, fault.KindDecryption) {
		t.Fatalf("bad base64: %v", err)
	}

	notJSON, _ := PlainCodec{}.Encrypt([]byte("not json"))
	err = New(rawServer{body: []byte(notJSON)}, PlainCodec{}).Exchange(ctx, TaskListRequest{}, &resp)
	if !fault.Is(err, fault.KindDecryption) {
		t.Fatalf("bad json: %v", err)
	}

	engine, _ := crypto.NewEngine()
	err = New(rawServer{body: []byte(notJSON)}, engine).Exchange(ctx, TaskListRequest{}, &resp)
	if !fault.Is(err, fault.KindDecryption) || errors.Is(err, io.EOF) {
		t.Fatalf("engine open: %v", err)
	}
}

func TestTaskListDecoding(t *testing.T) {
	raw := `{"status":"success","tasks":[
		{"id":"1","command":"pwd","parameters":{}},
		{"id":2,"command":"cd","parameters":{"args":"/tmp"}},
		{"command":"pwd"},
		{"id":"4","parameters":null},
		{"id":true,"command":"pwd"},
		{"id":"6","command":"cd","parameters":"oops"}
	]}`
	var resp TaskListResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tasks) != 4 {
		t.Fatalf("tasks = %d", len(resp.Tasks))
	}
	valid := []bool{true, true, false, false}
	for i, task := range resp.Tasks {
		if task.Valid() != valid[i] {
			t.Errorf("task %d valid = %v", i, task.Valid())
		}
	}
	if resp.Tasks[1].ID != "2" || resp.Tasks[1].Parameters.Args() != "/tmp" {
		t.Fatalf("task 2 = %+v", resp.Tasks[1])
	}
}
