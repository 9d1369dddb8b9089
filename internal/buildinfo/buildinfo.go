package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/protocolos/internal/buildinfo.Version=..." at build time
var (
	Version   = "dev"
	Commit    string // short git commit hash
	BuildTime string
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)
