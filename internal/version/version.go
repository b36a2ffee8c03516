package version

import (
	"runtime"
	"time"
)

// Overridden at build time with -ldflags "-X github.com/MrSnakeDoc/deferlink/internal/version.Version=...".
var (
	Name      = "deferlink"
	Version   = "dev"                           // ex: v1.0.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-10-17T09:12:00Z
	GoVersion = runtime.Version()
)
