package main

import (
	"io"
	"os"

	"github.com/resumesite/pdfexport"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string
	Getwd   func() (string, error)
	Stat    func(string) (os.FileInfo, error)

	// Launcher replaces the configured engine when set (tests).
	Launcher pdfexport.Launcher
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		Getwd:   os.Getwd,
		Stat:    os.Stat,
	}
}
