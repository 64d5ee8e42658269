package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"fileslink/internal/history"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func outcomeLabel(outcome history.Outcome, colorize bool) string {
	label := string(outcome)
	if !colorize {
		return label
	}
	switch outcome {
	case history.OutcomeSucceeded:
		return ansiGreen + label + ansiReset
	case history.OutcomeFailed:
		return ansiRed + label + ansiReset
	}
	return label
}
