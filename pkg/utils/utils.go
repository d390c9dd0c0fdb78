package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vctt94/holdemtable/pkg/poker"
)

// FormatCards is a helper function for displaying cards
func FormatCards(cards []poker.Card) string {
	if len(cards) == 0 {
		return "None"
	}

	parts := make([]string, len(cards))
	for i, card := range cards {
		parts[i] = card.String()
	}
	return strings.Join(parts, " ")
}

// EnsureDataDirExists creates the datadir and necessary subdirectories if they don't exist
func EnsureDataDirExists(datadir string) error {
	if err := os.MkdirAll(datadir, 0700); err != nil {
		return fmt.Errorf("failed to create datadir %s: %v", datadir, err)
	}

	logsDir := filepath.Join(datadir, "logs")
	if err := os.MkdirAll(logsDir, 0700); err != nil {
		return fmt.Errorf("failed to create logs directory %s: %v", logsDir, err)
	}

	return nil
}
