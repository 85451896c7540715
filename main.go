package main

import "github.com/Mindbaseeducation/khotwa-email-review-app/internal/app"

// Set by ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app.SetVersionInfo(version, commit, date)
	app.Main()
}
