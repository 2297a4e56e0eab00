// Package config holds defaults and the board configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mtlprog/wbstatus/internal/domain"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; without a database nothing is cached.
	DefaultDatabaseURL = ""

	// DefaultBoardConfig is the board configuration file looked up by default.
	DefaultBoardConfig = "board.yaml"

	// DefaultCacheTTL is how long fetched feeds stay fresh.
	DefaultCacheTTL = time.Hour

	// DefaultConduitTimeout bounds a single Conduit request.
	DefaultConduitTimeout = 30 * time.Second

	// DefaultSnapshotDir is where workboard HTML snapshots are kept.
	DefaultSnapshotDir = "snapshots"
)

// ErrInvalidBoard reports an unusable board configuration.
var ErrInvalidBoard = errors.New("invalid board configuration")

// LoadBoard reads and validates the YAML board configuration at path.
func LoadBoard(path string) (*domain.Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board config: %w", err)
	}
	return ParseBoard(data)
}

// ParseBoard decodes and validates a YAML board configuration.
func ParseBoard(data []byte) (*domain.Board, error) {
	var board domain.Board
	if err := yaml.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("decode board config: %w", err)
	}

	if board.ProjectPHID == "" {
		return nil, fmt.Errorf("%w: project_phid is required", ErrInvalidBoard)
	}
	for name, column := range board.Milestones {
		if column == "" {
			return nil, fmt.Errorf("%w: milestone %q has no column", ErrInvalidBoard, name)
		}
	}
	if board.Timezone != "" {
		if _, err := time.LoadLocation(board.Timezone); err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidBoard, board.Timezone, err)
		}
	}
	if board.Milestones == nil {
		board.Milestones = domain.Milestones{}
	}
	if board.ColumnNames == nil {
		board.ColumnNames = map[string]string{}
	}

	return &board, nil
}
