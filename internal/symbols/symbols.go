// Package symbols selects the symbol list for a run: explicit arguments, a
// file of one symbol per line, or the built-in default list.
package symbols

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"pricemirror/internal/domain"
)

// Default is used when neither arguments nor a file supply symbols.
var Default = []string{
	"ITOT", "IVE", "IJJ", "IJS", "FREL", "FENY", "IEFA", "IEMG",
	"AGG", "LQD", "IAGG", "EMB",
	"AAPL", "GOOGL", "AMZN", "BRK-B", "FDC", "MSFT", "TWTR", "TSLA", "GLOB",
}

var nonAlnum = regexp.MustCompile(`[^0-9a-zA-Z]+`)

// Sanitize trims s and replaces each run of non-alphanumerics with "-", so
// "BRK.B" becomes "BRK-B".
func Sanitize(s string) string {
	return nonAlnum.ReplaceAllString(strings.TrimSpace(s), "-")
}

// FromArgs normalises command-line symbols.
func FromArgs(args []string) []domain.Symbol {
	return domain.Symbols(args)
}

// ReadFile reads one symbol per line. Only the first comma-separated field
// of a line is used; blank lines are skipped.
func ReadFile(path string) ([]domain.Symbol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening symbol file: %w", err)
	}
	defer f.Close()

	var out []domain.Symbol
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		field, _, _ := strings.Cut(sc.Text(), ",")
		s := Sanitize(field)
		if s == "" || s == "-" {
			continue
		}
		out = append(out, domain.NewSymbol(s))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading symbol file: %w", err)
	}
	return out, nil
}

// Resolve applies the selection order: args, then file, then configured
// symbols, then Default.
func Resolve(args []string, file string, configured []string) ([]domain.Symbol, error) {
	if syms := FromArgs(args); len(syms) > 0 {
		return syms, nil
	}
	if file != "" {
		syms, err := ReadFile(file)
		if err != nil {
			return nil, err
		}
		if len(syms) > 0 {
			return syms, nil
		}
	}
	if syms := domain.Symbols(configured); len(syms) > 0 {
		return syms, nil
	}
	return domain.Symbols(Default), nil
}
