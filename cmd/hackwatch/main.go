package main

import (
	"context"

	"hackwatch/cmd/hackwatch/commands"
	"hackwatch/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	telemetry.SetupFromEnv(context.Background(), "hackwatch")
	commands.ExecuteContext(context.Background())
}
