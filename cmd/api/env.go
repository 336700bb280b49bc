package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// envFiles lists the dotenv files loaded before the config is read.
var envFiles []string

// loadDotEnv loads each file in order. A missing default .env is ignored; a
// missing file named on the command line is an error. Variables already set
// in the process environment win.
func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
