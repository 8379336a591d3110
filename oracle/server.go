package oracle

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/valyala/gorpc"

	"github.com/gmorph/gmorph/gmorph"
)

// Wire method names shared by the server dispatcher and RemoteProgram.
const (
	rpcNewSession = "Oracle.NewSession"
	rpcFill       = "Oracle.Fill"
	rpcRun        = "Oracle.Run"
	rpcRows       = "Oracle.Rows"
	rpcPurge      = "Oracle.Purge"
	rpcEndSession = "Oracle.EndSession"
)

// Factory builds one Program instance per client session.
type Factory func() (Program, error)

var (
	dispatcher = gorpc.NewDispatcher()

	serverMu sync.Mutex
	servers  = make(map[string]*gorpc.Server)
	factory  Factory

	sessionMu sync.Mutex
	sessions  = make(map[uint64]Program)
	sessionID uint64
)

type newSessionResponse struct {
	Session uint64
}

type sessionRequest struct {
	Session uint64
}

type fillRequest struct {
	Session  uint64
	Relation string
	Rows     []Row
}

type rowsRequest struct {
	Session  uint64
	Relation string
}

// rowsResponse flags unknown relations instead of erroring because gorpc
// flattens errors to strings across the wire.
type rowsResponse struct {
	Rows    []Row
	Unknown bool
}

func init() {
	dispatcher.AddFunc(rpcNewSession, handleNewSession)
	dispatcher.AddFunc(rpcFill, handleFill)
	dispatcher.AddFunc(rpcRun, handleRun)
	dispatcher.AddFunc(rpcRows, handleRows)
	dispatcher.AddFunc(rpcPurge, handlePurge)
	dispatcher.AddFunc(rpcEndSession, handleEndSession)

	gorpc.RegisterType(&newSessionResponse{})
	gorpc.RegisterType(&sessionRequest{})
	gorpc.RegisterType(&fillRequest{})
	gorpc.RegisterType(&rowsRequest{})
	gorpc.RegisterType(&rowsResponse{})
	gorpc.RegisterType(Term{})
}

// RegisterFactory sets the Program constructor used for new sessions.  It
// must be called before StartServer.
func RegisterFactory(f Factory) {
	serverMu.Lock()
	factory = f
	serverMu.Unlock()
}

// StartServer serves programs at the given address until StopServer.
func StartServer(address string) error {
	serverMu.Lock()
	if factory == nil {
		serverMu.Unlock()
		return fmt.Errorf("no program factory registered for server at %s", address)
	}
	gorpc.SetErrorLogger(gmorph.Errorf) // Send gorpc errors to appropriate error log.
	s := gorpc.NewTCPServer(address, dispatcher.NewHandlerFunc())
	servers[address] = s
	serverMu.Unlock()

	gmorph.Infof("Oracle server listening on %s\n", address)
	return s.Serve()
}

// StopServer stops the server at the given address.
func StopServer(address string) error {
	serverMu.Lock()
	s, found := servers[address]
	delete(servers, address)
	serverMu.Unlock()
	if !found {
		return fmt.Errorf("no oracle server running at %s", address)
	}
	s.Stop()
	return nil
}

func handleNewSession() (*newSessionResponse, error) {
	serverMu.Lock()
	f := factory
	serverMu.Unlock()
	if f == nil {
		return nil, fmt.Errorf("no program factory registered")
	}
	p, err := f()
	if err != nil {
		return nil, fmt.Errorf("program factory: %v", err)
	}
	id := atomic.AddUint64(&sessionID, 1)
	sessionMu.Lock()
	sessions[id] = p
	sessionMu.Unlock()
	gmorph.Debugf("Opened oracle session %d\n", id)
	return &newSessionResponse{Session: id}, nil
}

func sessionProgram(id uint64) (Program, error) {
	sessionMu.Lock()
	p, found := sessions[id]
	sessionMu.Unlock()
	if !found {
		return nil, fmt.Errorf("unknown oracle session %d", id)
	}
	return p, nil
}

func handleFill(req *fillRequest) error {
	p, err := sessionProgram(req.Session)
	if err != nil {
		return err
	}
	return p.Fill(req.Relation, req.Rows)
}

func handleRun(req *sessionRequest) error {
	p, err := sessionProgram(req.Session)
	if err != nil {
		return err
	}
	return p.Run()
}

func handleRows(req *rowsRequest) (*rowsResponse, error) {
	p, err := sessionProgram(req.Session)
	if err != nil {
		return nil, err
	}
	rows, err := p.Rows(req.Relation)
	if errors.Is(err, ErrUnknownRelation) {
		return &rowsResponse{Unknown: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rowsResponse{Rows: rows}, nil
}

func handlePurge(req *sessionRequest) error {
	p, err := sessionProgram(req.Session)
	if err != nil {
		return err
	}
	return p.Purge()
}

func handleEndSession(req *sessionRequest) error {
	sessionMu.Lock()
	p, found := sessions[req.Session]
	delete(sessions, req.Session)
	sessionMu.Unlock()
	if !found {
		return fmt.Errorf("unknown oracle session %d", req.Session)
	}
	gmorph.Debugf("Closed oracle session %d\n", req.Session)
	return p.Close()
}
