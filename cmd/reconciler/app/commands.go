package app

import (
	"github.com/spf13/cobra"

	"github.com/knwanna/universal-reconciliation-service/cmd/reconciler/cmd/completion"
	"github.com/knwanna/universal-reconciliation-service/cmd/reconciler/cmd/extend"
	"github.com/knwanna/universal-reconciliation-service/cmd/reconciler/cmd/query"
	"github.com/knwanna/universal-reconciliation-service/cmd/reconciler/cmd/serve"
	"github.com/knwanna/universal-reconciliation-service/cmd/reconciler/cmd/suggest"
	"github.com/knwanna/universal-reconciliation-service/internal/server"
)

// NewServeCommand creates the serve command with app dependencies.
func (a *App) NewServeCommand() *cobra.Command {
	return serve.NewCommand(a, a.serverDefaults)
}

// NewReconcileCommand creates the reconcile command with app dependencies.
func (a *App) NewReconcileCommand() *cobra.Command {
	return query.NewCommand(a)
}

// NewSuggestCommand creates the suggest command with app dependencies.
func (a *App) NewSuggestCommand() *cobra.Command {
	return suggest.NewCommand(a)
}

// NewExtendCommand creates the extend command with app dependencies.
func (a *App) NewExtendCommand() *cobra.Command {
	return extend.NewCommand(a)
}

// NewCompletionCommand creates the shell completion command.
func (a *App) NewCompletionCommand() *cobra.Command {
	return completion.NewCommand()
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("reconciler %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

// serverDefaults returns the server configuration implied by config files
// and the environment. Serve flags override it.
func (a *App) serverDefaults() server.Config {
	cfg := server.DefaultConfig()
	if a.config.HTTPHost != "" {
		cfg.Host = a.config.HTTPHost
	}
	if a.config.HTTPPort > 0 {
		cfg.Port = a.config.HTTPPort
	}
	cfg.BaseURL = a.config.BaseURL
	cfg.ManifestFile = a.config.ManifestFile
	cfg.DataDir = a.config.DataDir
	if a.config.APIToken != "" {
		cfg.AuthEnabled = true
		cfg.AuthAPIKey = a.config.APIToken
	}
	return cfg
}
