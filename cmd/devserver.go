package main

import (
	"context"
	"net"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/server"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/urfave/cli/v3"
)

// DevServer serves the annotation API from memory until interrupted.
func (r *Runner) DevServer(ctx context.Context, cmd *cli.Command) error {
	srv := server.NewDevServer(server.DevServerOpts{
		Token:       cmd.String("token"),
		ExportStep:  cmd.Float("export-step"),
		FailExports: cmd.String("fail-exports"),
		MaxUploadMB: r.config.Upload.MaxSizeMB,
		Logger:      shared.WithLogger(r.logger, "component", "dev-server"),
	})

	frames := int(cmd.Int("frames"))
	seeded := []string{}
	for _, name := range cmd.StringSlice("seed") {
		seeded = append(seeded, srv.Seed(name, frames))
	}

	return srv.ListenAndServe(ctx, cmd.String("addr"), func(addr net.Addr) {
		base := "http://" + addr.String()
		r.writePlain("Serving annotation API on %s (Ctrl+C to stop)\n", base)
		for _, id := range seeded {
			r.writePlain("  %s\n", models.DeepLink(base, id, 0))
		}
	})
}
