package main

import (
	"os"
	"os/signal"

	"github.com/kdeps/runtests/cmd"
	"github.com/kdeps/runtests/pkg/environment"
)

// Injectable functions for testability
var (
	// OS operations
	OsExitFn       = os.Exit
	SignalNotifyFn = signal.Notify

	// Environment functions
	NewEnvironmentFn = environment.NewEnvironment

	// Command functions
	NewRootCommandFn = cmd.NewRootCommand
)
