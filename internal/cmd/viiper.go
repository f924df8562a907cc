package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aircontroller/padbridge/apiclient"
	"github.com/aircontroller/padbridge/apitypes"
	"github.com/aircontroller/padbridge/device/dualshock4"
	"github.com/aircontroller/padbridge/device/xbox360"
	"github.com/aircontroller/padbridge/internal/util"
	"github.com/aircontroller/padbridge/pad"
)

const viiperHint = "is the VIIPER server running and the USBIP driver installed?"

// Viiper configures the VIIPER server the native pads are created on.
type Viiper struct {
	Addr           string `help:"VIIPER API server address" default:"localhost:3242" env:"VIIPER_API_ADDR"`
	BusID          uint32 `help:"Bus to add the device to (0 = lowest existing bus, or a new one)" default:"0" env:"VIIPER_BUS_ID"`
	PromptPassword bool   `help:"Ask for the VIIPER API password on the terminal"`

	apiclient.Config `embed:""`
}

// virtualDevice is a pad device living on a VIIPER bus.
type virtualDevice struct {
	client     *apiclient.Client
	stream     *apiclient.DeviceStream
	info       *apitypes.Device
	createdBus bool
	logger     *slog.Logger
}

// attach adds a device of kind to a bus and opens its stream.
func (v *Viiper) attach(ctx context.Context, kind pad.Kind, logger *slog.Logger) (*virtualDevice, error) {
	if v.PromptPassword && v.Password == "" {
		pw, err := util.ReadPassword("VIIPER password: ")
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		v.Password = pw
	}

	client := apiclient.New(v.Addr, &v.Config)
	ping, err := client.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("ping VIIPER at %s: %w", v.Addr, err)
	}
	logger.Info("connected to VIIPER", "addr", v.Addr, "server", ping.Server, "version", ping.Version)

	busID, created, err := v.pickBus(ctx, client)
	if err != nil {
		return nil, err
	}
	d := &virtualDevice{client: client, createdBus: created, logger: logger}
	if created {
		d.info = &apitypes.Device{BusID: busID}
		logger.Info("created bus", "bus", busID)
	}

	stream, info, err := client.AddDeviceAndConnect(ctx, busID, kind.DeviceType(), nil)
	if info != nil {
		d.info = info
	}
	if err != nil {
		d.cleanup(info != nil)
		return nil, fmt.Errorf("add %s device: %w", kind.DeviceType(), err)
	}
	d.stream = stream
	logger.Info("virtual device attached", "type", info.Type, "busid", info.Address(), "vid", info.Vid, "pid", info.Pid)
	return d, nil
}

func (v *Viiper) pickBus(ctx context.Context, client *apiclient.Client) (busID uint32, created bool, err error) {
	list, err := client.BusList(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list buses: %w", err)
	}
	switch {
	case v.BusID != 0 && slices.Contains(list.Buses, v.BusID):
		return v.BusID, false, nil
	case v.BusID == 0 && len(list.Buses) > 0:
		return slices.Min(list.Buses), false, nil
	}
	resp, err := client.BusCreate(ctx, v.BusID)
	if err != nil {
		return 0, false, fmt.Errorf("create bus: %w", err)
	}
	return resp.BusID, true, nil
}

// watchFeedback logs rumble and LED commands until the stream closes.
func (d *virtualDevice) watchFeedback(ctx context.Context, kind pad.Kind) {
	decode := xbox360.DecodeRumble
	if kind == pad.KindDualShock {
		decode = dualshock4.DecodeOutput
	}
	msgs, errs := d.stream.StartReading(ctx, 8, decode)
	go func() {
		for msg := range msgs {
			d.logger.Debug("device feedback", "state", msg)
		}
		if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Debug("device feedback stopped", "error", err)
		}
	}()
}

// Close closes the stream and removes the device, and the bus if it was created for it.
func (d *virtualDevice) Close() {
	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			d.logger.Warn("close device stream", "error", err)
		}
	}
	d.cleanup(true)
}

func (d *virtualDevice) cleanup(removeDevice bool) {
	if d.info == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if removeDevice && d.info.DevId != "" {
		if _, err := d.client.DeviceRemove(ctx, d.info.BusID, d.info.DevId); err != nil {
			d.logger.Warn("remove virtual device", "busid", d.info.Address(), "error", err)
		} else {
			d.logger.Info("virtual device removed", "busid", d.info.Address())
		}
	}
	if d.createdBus {
		if _, err := d.client.BusRemove(ctx, d.info.BusID); err != nil {
			d.logger.Warn("remove bus", "bus", d.info.BusID, "error", err)
		}
	}
}
