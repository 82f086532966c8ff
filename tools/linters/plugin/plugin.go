// Package main exposes the repo's analyzers to golangci-lint as a plugin.
package main

import (
	"golang.org/x/tools/go/analysis"

	"difendimi.live/intake/tools/linters/enumvalidator"
)

type AnalyzerPlugin struct{}

func (*AnalyzerPlugin) GetAnalyzers() []*analysis.Analyzer {
	return analyzers()
}

func New(conf any) ([]*analysis.Analyzer, error) {
	return analyzers(), nil
}

func analyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{enumvalidator.Analyzer}
}
