package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"difendimi.live/intake/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
