// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/effectus/natvis-go/ast"
	"github.com/effectus/natvis-go/parser"
	"github.com/effectus/natvis-go/store"
)

// Natvis wraps type definitions into a complete natvis document.
func Natvis(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="utf-8"?>
<AutoVisualizer xmlns="http://schemas.microsoft.com/vstudio/debugger/natvis/2010">` + body + `</AutoVisualizer>`)
}

// Rules parses body and requires every visualizer to be valid.
func Rules(t testing.TB, body string) []*ast.Rule {
	t.Helper()
	file, err := parser.New().ParseBytes(Natvis(body))
	require.NoError(t, err)
	require.Empty(t, file.Errors)
	return file.Rules
}

// Store parses body into a new rule store.
func Store(t testing.TB, body string) *store.Store {
	t.Helper()
	s := store.New()
	for _, rule := range Rules(t, body) {
		require.NoError(t, s.Add(rule))
	}
	return s
}
