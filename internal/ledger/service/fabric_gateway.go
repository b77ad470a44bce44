// Package service implements the ledger gateway on top of the Hyperledger Fabric gateway
// client: wallet identities, connection profiles, gRPC connections and error mapping.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/hash"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	ledgerDomain "github.com/herbaltrace/ledgersync/internal/ledger/domain"
)

// EndpointResolver resolves the peer endpoint of an organization.
type EndpointResolver interface {
	Endpoint(organization string) (*Endpoint, error)
}

// FabricConfig holds the network coordinates and deadlines of the gateway.
type FabricConfig struct {
	Channel         string
	Chaincode       string
	Contract        string
	ConnectTimeout  time.Duration
	SubmitTimeout   time.Duration
	EvaluateTimeout time.Duration
}

// FabricGateway opens sessions against a Fabric network. gRPC connections are shared per
// organization; sessions are cheap and bound to one identity.
type FabricGateway struct {
	config    FabricConfig
	wallet    Wallet
	endpoints EndpointResolver
	logger    *slog.Logger

	dials  singleflight.Group
	mu     sync.Mutex
	conns  map[string]*grpc.ClientConn
	closed bool
}

// NewFabricGateway creates a gateway that signs with wallet identities and dials the peers
// named by the organization connection profiles.
func NewFabricGateway(
	config FabricConfig,
	wallet Wallet,
	endpoints EndpointResolver,
	logger *slog.Logger,
) *FabricGateway {
	return &FabricGateway{
		config:    config,
		wallet:    wallet,
		endpoints: endpoints,
		logger:    logger,
		conns:     make(map[string]*grpc.ClientConn),
	}
}

// Connect opens a session signed by the identity label through the organization's peer.
func (g *FabricGateway) Connect(
	ctx context.Context,
	identityLabel string,
	organization string,
) (ledgerDomain.Session, error) {
	id, err := g.wallet.Identity(ctx, identityLabel)
	if err != nil {
		return nil, err
	}

	conn, endpoint, err := g.connection(ctx, organization)
	if err != nil {
		return nil, err
	}
	if endpoint.MSPID != id.MSPID {
		g.logger.Warn("identity msp differs from organization profile",
			slog.String("identity", identityLabel),
			slog.String("identity_msp", id.MSPID),
			slog.String("organization", organization),
			slog.String("profile_msp", endpoint.MSPID),
		)
	}

	x509Identity, err := identity.NewX509Identity(id.MSPID, id.Certificate)
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q: %v", identityLabel, err)
	}
	sign, err := identity.NewPrivateKeySign(id.PrivateKey)
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrIdentityNotFound, "identity %q signer: %v", identityLabel, err)
	}

	gw, err := client.Connect(
		x509Identity,
		client.WithSign(sign),
		client.WithHash(hash.SHA256),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(g.config.EvaluateTimeout),
		client.WithEndorseTimeout(g.config.SubmitTimeout),
		client.WithSubmitTimeout(g.config.SubmitTimeout),
		client.WithCommitStatusTimeout(g.config.SubmitTimeout),
	)
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "gateway for %q: %v", identityLabel, err)
	}

	contract := gw.GetNetwork(g.config.Channel).GetContractWithName(g.config.Chaincode, g.config.Contract)
	return &fabricSession{
		gateway:         gw,
		contract:        contract,
		submitTimeout:   g.config.SubmitTimeout,
		evaluateTimeout: g.config.EvaluateTimeout,
	}, nil
}

// Close closes every cached connection. Sessions opened earlier fail afterwards.
func (g *FabricGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for organization, conn := range g.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection to %s: %w", organization, err))
		}
	}
	g.conns = nil
	return apperrors.Join(errs...)
}

// connection returns the ready connection of the organization, dialing it on first use.
// Dials run outside g.mu and are shared per organization, so an unreachable peer only
// delays callers of its own organization.
func (g *FabricGateway) connection(ctx context.Context, organization string) (*grpc.ClientConn, *Endpoint, error) {
	endpoint, err := g.endpoints.Endpoint(organization)
	if err != nil {
		return nil, nil, err
	}

	conn, err := g.cachedConnection(organization)
	if err != nil || conn != nil {
		return conn, endpoint, err
	}

	// The shared dial outlives the caller that started it; ConnectTimeout bounds it.
	dialCtx := ctx
	if g.config.ConnectTimeout > 0 {
		dialCtx = context.WithoutCancel(ctx)
	}
	result := g.dials.DoChan(organization, func() (interface{}, error) {
		return g.dialAndStore(dialCtx, organization, endpoint)
	})

	select {
	case res := <-result:
		if res.Err != nil {
			return nil, nil, res.Err
		}
		return res.Val.(*grpc.ClientConn), endpoint, nil
	case <-ctx.Done():
		return nil, nil, apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "%s: %v", endpoint.Address, ctx.Err())
	}
}

// cachedConnection returns the live cached connection of the organization, or nil.
func (g *FabricGateway) cachedConnection(organization string) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ledgerDomain.ErrSessionClosed
	}
	if conn, ok := g.conns[organization]; ok && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}
	return nil, nil
}

func (g *FabricGateway) dialAndStore(ctx context.Context, organization string, endpoint *Endpoint) (*grpc.ClientConn, error) {
	if conn, err := g.cachedConnection(organization); err != nil || conn != nil {
		return conn, err
	}

	conn, err := dial(ctx, endpoint, g.config.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		_ = conn.Close()
		return nil, ledgerDomain.ErrSessionClosed
	}
	g.conns[organization] = conn

	g.logger.Info("ledger connection established",
		slog.String("organization", organization),
		slog.String("address", endpoint.Address),
		slog.Bool("tls", endpoint.TLS),
	)
	return conn, nil
}

// dial creates a client connection and waits until it is ready or the timeout expires.
func dial(ctx context.Context, endpoint *Endpoint, timeout time.Duration) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if endpoint.TLS {
		creds = credentials.NewClientTLSFromCert(endpoint.TLSCACert, endpoint.ServerNameOverride)
	}

	conn, err := grpc.NewClient(endpoint.Address, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "%s: %v", endpoint.Address, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := waitReady(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "%s: %v", endpoint.Address, err)
	}
	return conn, nil
}

func waitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return fmt.Errorf("connection shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("connection %s: %w", state, ctx.Err())
		}
	}
}

type fabricSession struct {
	gateway         *client.Gateway
	contract        *client.Contract
	submitTimeout   time.Duration
	evaluateTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// Submit endorses, orders and waits for the commit of one transaction.
func (s *fabricSession) Submit(
	ctx context.Context,
	function string,
	args ...string,
) (ledgerDomain.SubmitResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ledgerDomain.SubmitResult{}, ledgerDomain.ErrSessionClosed
	}

	ctx, cancel := withTimeout(ctx, s.submitTimeout)
	defer cancel()

	proposal, err := s.contract.NewProposal(function, client.WithArguments(args...))
	if err != nil {
		return ledgerDomain.SubmitResult{}, apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "proposal: %v", err)
	}
	txID := proposal.TransactionID()

	transaction, err := proposal.EndorseWithContext(ctx)
	if err != nil {
		return ledgerDomain.SubmitResult{}, classify(phaseEndorse, txID, err)
	}

	commit, err := transaction.SubmitWithContext(ctx)
	if err != nil {
		return ledgerDomain.SubmitResult{}, classify(phaseSubmit, txID, err)
	}

	status, err := commit.StatusWithContext(ctx)
	if err != nil {
		return ledgerDomain.SubmitResult{}, classify(phaseCommit, txID, err)
	}
	if !status.Successful {
		return ledgerDomain.SubmitResult{}, classifyValidation(txID, status.Code)
	}

	return ledgerDomain.SubmitResult{
		TransactionID: txID,
		Result:        transaction.Result(),
		BlockNumber:   status.BlockNumber,
	}, nil
}

// Evaluate runs a read-only query on one peer.
func (s *fabricSession) Evaluate(ctx context.Context, function string, args ...string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ledgerDomain.ErrSessionClosed
	}

	ctx, cancel := withTimeout(ctx, s.evaluateTimeout)
	defer cancel()

	proposal, err := s.contract.NewProposal(function, client.WithArguments(args...))
	if err != nil {
		return nil, apperrors.Wrapf(ledgerDomain.ErrConnectionUnavailable, "proposal: %v", err)
	}
	result, err := proposal.EvaluateWithContext(ctx)
	if err != nil {
		return nil, classify(phaseEvaluate, proposal.TransactionID(), err)
	}
	return result, nil
}

// Close releases the session. It is safe to call more than once.
func (s *fabricSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.gateway.Close()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
