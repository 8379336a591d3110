package oracle

import (
	"fmt"

	"github.com/valyala/gorpc"
)

// RemoteProgram drives a Program hosted by an oracle server over TCP.  Each
// RemoteProgram owns one server-side session, so the usual one instance per
// worker rule gives workers isolated evaluator state.
type RemoteProgram struct {
	address string
	c       *gorpc.Client
	dc      *gorpc.DispatcherClient
	session uint64
}

// Dial connects to an oracle server and opens a fresh session.
func Dial(address string) (*RemoteProgram, error) {
	c := gorpc.NewTCPClient(address)
	c.Start()
	dc := dispatcher.NewFuncClient(c)
	resp, err := dc.Call(rpcNewSession, nil)
	if err != nil {
		c.Stop()
		return nil, fmt.Errorf("oracle server %s: %v", address, err)
	}
	sr, ok := resp.(*newSessionResponse)
	if !ok {
		c.Stop()
		return nil, fmt.Errorf("oracle server %s: unexpected session response %T", address, resp)
	}
	return &RemoteProgram{address: address, c: c, dc: dc, session: sr.Session}, nil
}

// RemoteFactory returns a Factory dialing the given address, for running
// pipelines against a shared oracle server.
func RemoteFactory(address string) Factory {
	return func() (Program, error) {
		return Dial(address)
	}
}

// Fill implements Program.
func (r *RemoteProgram) Fill(relation string, rows []Row) error {
	_, err := r.dc.Call(rpcFill, &fillRequest{Session: r.session, Relation: relation, Rows: rows})
	return err
}

// Run implements Program.
func (r *RemoteProgram) Run() error {
	_, err := r.dc.Call(rpcRun, &sessionRequest{Session: r.session})
	return err
}

// Rows implements Program.
func (r *RemoteProgram) Rows(relation string) ([]Row, error) {
	resp, err := r.dc.Call(rpcRows, &rowsRequest{Session: r.session, Relation: relation})
	if err != nil {
		return nil, err
	}
	rr, ok := resp.(*rowsResponse)
	if !ok {
		return nil, fmt.Errorf("oracle server %s: unexpected rows response %T", r.address, resp)
	}
	if rr.Unknown {
		return nil, fmt.Errorf("relation %s: %w", relation, ErrUnknownRelation)
	}
	return rr.Rows, nil
}

// Purge implements Program.
func (r *RemoteProgram) Purge() error {
	_, err := r.dc.Call(rpcPurge, &sessionRequest{Session: r.session})
	return err
}

// Close ends the server-side session and drops the connection.
func (r *RemoteProgram) Close() error {
	_, err := r.dc.Call(rpcEndSession, &sessionRequest{Session: r.session})
	r.c.Stop()
	return err
}
