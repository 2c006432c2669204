// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Command launcher runs the launcher server, the client daemon and the
// admin commands that talk to a running server.
package main

import (
	"os"

	"github.com/tobert/halfremembered-launcher/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	info := models.NewAppBuildInfo(orNA(buildVersion), orNA(buildDate), orNA(buildCommit))

	c := newCLI(info, os.Stdout, os.Stderr)
	if err := c.execute(os.Args[1:]); err != nil {
		c.printFailure(err)
		os.Exit(1)
	}
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
