// cmd/clearvaluecam/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/config"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/logging"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/session"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/internal/tui"
	"github.com/Sivam-Manoj/clearvalue-sample-cam/pkg/camera"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v", err)
		os.Exit(1)
	}

	log, err := logging.New("clearvaluecam.log")
	if err != nil {
		fmt.Printf("Error opening log file: %v", err)
		os.Exit(1)
	}
	defer log.Close()

	captureDir := cfg.CaptureDir
	if captureDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Printf("Error getting home directory: %v", err)
			os.Exit(1)
		}
		captureDir = filepath.Join(home, "Pictures", "clearvaluecam")
	}

	driver := camera.NewOpenCVDriver(captureDir)
	defer driver.Close()

	controller := session.New(session.Options{
		Driver:     driver,
		Log:        log,
		Config:     cfg,
		SaveConfig: config.Save,
	})

	if err := controller.Start(); err != nil {
		fmt.Printf("Error starting capture session: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		tui.New(cfg, controller),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
