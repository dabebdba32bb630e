package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AssignmentStore persists which table each display is mounted at.
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a Assignment) error
	DeleteAssignment(ctx context.Context, deviceID string) error
}

// Provisioner adds and removes displays at runtime, keeping the store and
// the registry in step.
type Provisioner struct {
	registry *Registry
	store    AssignmentStore
	build    BuildFunc
	logger   Logger
}

// NewProvisioner creates a provisioner. logger may be nil.
func NewProvisioner(reg *Registry, store AssignmentStore, build BuildFunc, logger Logger) *Provisioner {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Provisioner{registry: reg, store: store, build: build, logger: logger}
}

// Provision stores the assignment, then builds, registers and renders
// the display's initial screen. If anything after the store write fails
// the assignment is removed again.
func (p *Provisioner) Provision(ctx context.Context, a Assignment) (*Controller, error) {
	a.DeviceID = strings.TrimSpace(a.DeviceID)
	a.TableID = strings.TrimSpace(a.TableID)
	if a.DeviceID == "" || a.TableID == "" {
		return nil, fmt.Errorf("%w: device_id and table_id are required", ErrInvalidDevice)
	}
	if _, err := p.registry.Get(a.DeviceID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceExists, a.DeviceID)
	}

	if err := p.store.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}

	if err := initDevice(ctx, p.registry, a, p.build); err != nil {
		p.rollback(a, err)
		return nil, err
	}

	c, err := p.registry.Get(a.DeviceID)
	if err != nil {
		return nil, err
	}
	p.logger.Info("device provisioned", "device_id", a.DeviceID, "table_id", a.TableID)
	return c, nil
}

func (p *Provisioner) rollback(a Assignment, cause error) {
	// Registration may have succeeded before the initial render failed.
	if err := p.registry.Unregister(a.DeviceID); err != nil && !errors.Is(err, ErrDeviceNotFound) {
		p.logger.Warn("rollback unregister failed", "device_id", a.DeviceID, "error", err)
	}
	if err := p.store.DeleteAssignment(context.Background(), a.DeviceID); err != nil {
		p.logger.Error("rollback of assignment failed",
			"device_id", a.DeviceID,
			"table_id", a.TableID,
			"cause", cause,
			"error", err,
		)
	}
}

// Deprovision stops and unregisters the display and deletes its
// assignment. A device missing from the registry is still removed from
// the store; the store's not-found error is returned only when neither
// held it.
func (p *Provisioner) Deprovision(ctx context.Context, deviceID string) error {
	regErr := p.registry.Unregister(deviceID)
	if regErr != nil && !errors.Is(regErr, ErrDeviceNotFound) {
		return regErr
	}

	if err := p.store.DeleteAssignment(ctx, deviceID); err != nil {
		if regErr != nil {
			return err
		}
		p.logger.Warn("registered device had no stored assignment", "device_id", deviceID, "error", err)
	}

	p.logger.Info("device deprovisioned", "device_id", deviceID)
	return nil
}
