package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aircontroller/padbridge/bridge"
	"github.com/aircontroller/padbridge/internal/configpaths"
	"github.com/aircontroller/padbridge/internal/log"
	"github.com/aircontroller/padbridge/internal/socketio"
	"github.com/aircontroller/padbridge/internal/util"
	"github.com/aircontroller/padbridge/pad"
	"github.com/aircontroller/padbridge/profile"
)

// Bridge joins a session and drives a virtual gamepad from its inputs.
type Bridge struct {
	Server   string `help:"Session server URL" default:"http://localhost:3000" env:"AIR_CONTROLLER_SERVER"`
	Code     string `help:"Session code shown by the host" env:"AIR_CONTROLLER_CODE"`
	Device   string `help:"Virtual controller type (xbox, ds4)" default:"xbox" enum:"xbox,ds4,xbox360,dualshock4" env:"AIR_CONTROLLER_VIRTUAL_DEVICE"`
	Profile  string `help:"Fixed mapping profile id; host profile changes are ignored when set" env:"AIR_CONTROLLER_PROFILE"`
	Name     string `help:"Bridge label shown in the host UI" default:"Virtual Gamepad Bridge" env:"AIR_CONTROLLER_BRIDGE_NAME"`
	DryRun   bool   `help:"Log resolved actions without creating a virtual device" env:"AIR_CONTROLLER_DRY_RUN"`
	Profiles string `help:"Profile catalog (json, yaml or toml); defaults to profiles.* in the config search path, then the built-in catalog" type:"path" env:"AIR_CONTROLLER_PROFILES"`

	Transport socketio.Config `embed:"" prefix:"transport."`
	Viiper    Viiper          `embed:"" prefix:"viiper."`
}

// Run is called by Kong when the bridge command is executed.
func (b *Bridge) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return b.Start(ctx, logger, rawLogger)
}

// Start runs the bridge until ctx is done or the session ends.
func (b *Bridge) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	code, err := b.sessionCode()
	if err != nil {
		return err
	}
	kind, err := pad.ParseKind(b.Device)
	if err != nil {
		return err
	}

	catalog, source, err := profile.Discover(b.Profiles, configpaths.ProfileCandidatePaths())
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	if catalog.Len() == 0 {
		return fmt.Errorf("%s: %w", source, profile.ErrNoProfilesAvailable)
	}

	transport, err := socketio.New(b.Server, b.Transport, logger, rawLogger)
	if err != nil {
		return err
	}

	var p pad.Pad
	mode := "dry-run"
	if b.DryRun {
		p = pad.NewDryRun(logger)
	} else {
		mode = "virtual-device"
		dev, err := b.Viiper.attach(ctx, kind, logger)
		if err != nil {
			logger.Error("failed to initialize virtual controller device", "error", err)
			logger.Error(viiperHint)
			return fmt.Errorf("virtual %s: %w", kind.Label(), err)
		}
		defer dev.Close()
		if p, err = pad.NewNative(kind, dev.stream); err != nil {
			return err
		}
		dev.watchFeedback(ctx, kind)
	}

	requested := strings.TrimSpace(b.Profile)
	rt, err := bridge.New(transport, p, catalog, bridge.Options{
		Code:          code,
		Name:          bridge.DisplayName(b.Name, kind.Label()),
		ProfileID:     requested,
		ProfileLocked: requested != "",
	}, logger)
	if err != nil {
		return err
	}

	profileLabel := rt.ActiveProfileID()
	if requested != "" {
		profileLabel += " (locked)"
	}
	logger.Info("starting virtual gamepad bridge",
		"server", transport.Endpoint(),
		"session", code,
		"device", kind.Label(),
		"mode", mode,
		"profile", profileLabel,
		"profiles", source,
	)

	return rt.Run(ctx)
}

// sessionCode normalizes the configured code, asking for one on an interactive terminal.
func (b *Bridge) sessionCode() (string, error) {
	code := bridge.NormalizeCode(b.Code)
	if code == "" && util.IsTerminal() {
		entered, err := util.Prompt("Session code: ")
		if err != nil {
			return "", fmt.Errorf("read session code: %w", err)
		}
		code = bridge.NormalizeCode(entered)
	}
	if code == "" {
		return "", errors.New("a session code is required (--code or AIR_CONTROLLER_CODE)")
	}
	return code, nil
}
