package activation

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"winsbygroup.com/licenseagent/internal/license"
	"winsbygroup.com/licenseagent/internal/licensekey"
	"winsbygroup.com/licenseagent/internal/machine"
	"winsbygroup.com/licenseagent/internal/metrics"
)

var (
	ErrInvalidSignature = errors.New("license signature does not match the configured public key")
	ErrProductMismatch  = errors.New("license belongs to a different product")
)

// Activator sends activation requests to the license service.
type Activator interface {
	Activate(ctx context.Context, params licensekey.ActivateParams) (*licensekey.LicenseKey, error)
}

type Service struct {
	client     Activator
	licenseSvc *license.Service
	machineSvc *machine.Service
	publicKey  *rsa.PublicKey
	metrics    metrics.Recorder

	ProductID    uint64
	MachineCode  string // overrides the derived machine code when set
	FriendlyName string
	HostID       func() (string, error)
}

func NewService(
	client Activator,
	licenseSvc *license.Service,
	machineSvc *machine.Service,
	publicKey *rsa.PublicKey,
	rec metrics.Recorder,
) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{
		client:     client,
		licenseSvc: licenseSvc,
		machineSvc: machineSvc,
		publicKey:  publicKey,
		metrics:    rec,
		HostID:     machine.HostID,
	}
}

// ResolveMachineCode picks the code to activate with: the request's, then the
// configured one, then one derived from this host and installation.
func (s *Service) ResolveMachineCode(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if s.MachineCode != "" {
		return s.MachineCode, nil
	}
	host, err := s.HostID()
	if err != nil {
		return "", err
	}
	return s.machineSvc.Code(ctx, host)
}

// Activate requests a signed license, verifies it and stores it.
// Nothing is stored unless the signature checks out.
func (s *Service) Activate(ctx context.Context, req *Request) (*Result, error) {
	machineCode, err := s.ResolveMachineCode(ctx, req.MachineCode)
	if err != nil {
		return nil, fmt.Errorf("resolve machine code: %w", err)
	}

	friendlyName := req.FriendlyName
	if friendlyName == "" {
		friendlyName = s.FriendlyName
	}

	b := licensekey.NewActivateParams().
		ProductID(s.ProductID).
		Key(req.Key).
		Sign(true).
		MachineCode(machineCode)
	if friendlyName != "" {
		b.FriendlyName(friendlyName)
	}
	params, err := b.Build()
	if err != nil {
		return nil, err
	}

	k, err := s.client.Activate(ctx, params)
	if err != nil {
		s.metrics.Activation(metrics.OutcomeError)
		return nil, fmt.Errorf("activate: %w", err)
	}

	if !k.Signed() {
		s.metrics.Activation(metrics.OutcomeUnsigned)
		return nil, licensekey.ErrUnsigned
	}
	ok, err := k.HasValidSignature(s.publicKey)
	if err != nil {
		s.metrics.Activation(metrics.OutcomeError)
		return nil, fmt.Errorf("verify: %w", err)
	}
	if !ok {
		s.metrics.Activation(metrics.OutcomeInvalid)
		return nil, ErrInvalidSignature
	}
	if k.ProductID != s.ProductID {
		s.metrics.Activation(metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w (got %d, want %d)", ErrProductMismatch, k.ProductID, s.ProductID)
	}

	rec, err := s.licenseSvc.Save(ctx, machineCode, k)
	if err != nil {
		s.metrics.Activation(metrics.OutcomeError)
		return nil, err
	}
	s.metrics.Activation(metrics.OutcomeValid)

	return &Result{
		Status:  s.licenseSvc.Check(rec, s.publicKey),
		License: k,
	}, nil
}
