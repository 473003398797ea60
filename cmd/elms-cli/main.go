package main

import (
	"log/slog"

	"elms-extractor/cmd/elms-cli/commands"
	"elms-extractor/internal/components/telemetry"
	"elms-extractor/pkg/serviceutil"
)

func main() {
	telemetry.InitSlog(false, slog.LevelInfo)

	ctx, stop := serviceutil.SignalContext()
	defer stop()
	commands.ExecuteContext(ctx)
}
