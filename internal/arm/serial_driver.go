package arm

import (
	"context"
	"fmt"
	"sync"

	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// SerialDriver is the USE_HARDWARE=true seam. The original Python adapter
// (original_source/backend/adapters/arm_adapter.py) dynamically imports a
// driver class named by ARM_DRIVER_MODULE/ARM_DRIVER_CLASS and falls back
// to "remain disconnected" when that import fails. A dynamic-import
// equivalent isn't idiomatic Go, and the hardware SDK itself is out of
// scope per spec.md §1 ("Hardware driver details... treated as a trait
// with a handful of methods"), so SerialDriver keeps only the fallback
// half of that behavior: it reports itself disconnected until a transport
// is attached, and SendTargets, Home and ThrowMacro fail closed with
// platform.ErrHardware rather than silently succeeding. Connect returns
// (false, nil) when no port is configured and ErrHardware otherwise; Stop
// and JointAngles always succeed.
type SerialDriver struct {
	mu        sync.Mutex
	port      string
	connected bool
	joints    domain.Joints
	logger    platform.Logger
}

// NewSerialDriver builds a driver bound to a serial port path. No I/O
// happens until Connect is called.
func NewSerialDriver(port string, logger platform.Logger) *SerialDriver {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	return &SerialDriver{port: port, logger: logger}
}

func (d *SerialDriver) Connect(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == "" {
		d.logger.Warn("no ARM_PORT configured, serial driver stays disconnected", nil)
		return false, nil
	}
	// Real transport I/O is out of scope (spec.md §1); we report failure
	// closed rather than fabricate a working link.
	return false, fmt.Errorf("%w: serial transport %q unreachable in this build", platform.ErrHardware, d.port)
}

func (d *SerialDriver) SendTargets(ctx context.Context, chunk domain.ControlChunk) error {
	if !d.isConnected() {
		return fmt.Errorf("%w: arm not connected", platform.ErrHardware)
	}
	return nil
}

func (d *SerialDriver) Home(ctx context.Context) error {
	if !d.isConnected() {
		return fmt.Errorf("%w: arm not connected", platform.ErrHardware)
	}
	return nil
}

func (d *SerialDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *SerialDriver) ThrowMacro(ctx context.Context) error {
	if !d.isConnected() {
		return fmt.Errorf("%w: arm not connected", platform.ErrHardware)
	}
	return nil
}

func (d *SerialDriver) JointAngles() domain.Joints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.joints
}

func (d *SerialDriver) isConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}
