// breakout is a terminal client for a live classroom session: one main
// room, instructor-managed breakout rooms, broadcasts at several scopes,
// and private whispers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"breakout/internal/archive"
	"breakout/internal/config"
	"breakout/internal/engine"
	"breakout/internal/state"
	"breakout/internal/transport"
	"breakout/internal/tui"
)

func main() {
	var (
		roleFlag    = flag.String("role", "student", "session role: student or instructor")
		serverFlag  = flag.String("server", "", "relay base URL (overrides config)")
		configFlag  = flag.String("config", "", "path to JSON config file")
		archiveFlag = flag.String("archive", "", "transcript archive path (overrides config)")
	)
	flag.Parse()

	role := state.Role(*roleFlag)
	if role != state.RoleStudent && role != state.RoleInstructor {
		fmt.Fprintf(os.Stderr, "invalid role %q: must be student or instructor\n", *roleFlag)
		os.Exit(2)
	}

	cfg := config.LoadConfigWithPrecedence(*configFlag)
	if *serverFlag != "" {
		cfg.Server.URL = *serverFlag
	}
	if *archiveFlag != "" {
		cfg.Archive.Path = *archiveFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, role); err != nil {
		fmt.Fprintf(os.Stderr, "breakout: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, role state.Role) error {
	// The UI owns the terminal; route library logging away from it.
	logFile, err := tea.LogToFile("breakout.log", "breakout")
	if err == nil {
		defer logFile.Close()
	}

	dialCtx, cancelDial := context.WithTimeout(context.Background(), cfg.Server.DialTimeout)
	defer cancelDial()

	url := cfg.Server.URL + "/ws/" + string(role)
	channel, err := transport.Dial(dialCtx, url, transport.Options{
		WriteTimeout: cfg.Server.WriteTimeout,
		SendBuffer:   cfg.Server.SendBuffer,
	})
	if err != nil {
		return fmt.Errorf("connecting to relay: %w", err)
	}
	defer channel.Close()

	transcript, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("opening transcript archive: %w", err)
	}
	defer transcript.Close()

	store := state.NewStore(role)
	eng := engine.New(channel, store, transcript)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(tui.New(eng, role), tea.WithAltScreen())

	go func() {
		err := eng.Run(ctx)
		log.Printf("session engine stopped: %v", err)
		program.Send(tui.SessionClosedMsg{Err: err})
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
