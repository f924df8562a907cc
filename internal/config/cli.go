// Package config holds the root command line of padbridge.
package config

import "github.com/aircontroller/padbridge/internal/cmd"

// Log configures process logging.
type Log struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" enum:"trace,debug,info,warn,warning,error" env:"PADBRIDGE_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" type:"path" env:"PADBRIDGE_LOG_FILE"`
	RawFile string `help:"Dump raw Socket.IO frames to this file" type:"path" env:"PADBRIDGE_LOG_RAW_FILE"`
}

// CLI is the root kong model. Values come from flags, then environment,
// then the first configuration file found.
type CLI struct {
	Config string `help:"Configuration file (json, yaml or toml)" type:"path" env:"PADBRIDGE_CONFIG"`
	Log    Log    `embed:"" prefix:"log."`

	Bridge    cmd.Bridge        `cmd:"" default:"withargs" help:"Join a session and drive a virtual gamepad"`
	Profiles  cmd.Profiles      `cmd:"" help:"Inspect the profile catalog"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
