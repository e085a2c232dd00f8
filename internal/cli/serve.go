package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"worksheet/internal/config"
	mcpserver "worksheet/internal/mcp"
	"worksheet/internal/secret"
)

func (r *runner) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the editing session to an agent over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := r.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			log := a.Logger()
			srv := mcpserver.New(a, r.version, log)
			log.Debug("mcp session", "session_id", a.SessionID())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ServeStdio() }()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("mcp server: %w", err)
				}
			case <-ctx.Done():
				log.Info("shutting down MCP server")
			}
			a.WaitIdle(cmd.Context())
			return nil
		},
	}
}

func (r *runner) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := r.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config after file and environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	setKeyCmd := &cobra.Command{
		Use:   "set-key [api-key]",
		Short: "Store the gateway API key in the keychain",
		Long: `Stores the key under the name configured as gateway.apiKeyEnv. The key is
read from stdin when no argument is given. An environment variable of the
same name still takes precedence.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.loadConfig()
			if err != nil {
				return err
			}
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read api key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("api key is empty")
			}
			if err := r.keyStore(cfg).Set(cfg.Gateway.APIKeyEnv, []byte(key)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored API key as %s\n", cfg.Gateway.APIKeyEnv)
			return nil
		},
	}

	deleteKeyCmd := &cobra.Command{
		Use:   "delete-key",
		Short: "Remove the gateway API key from the keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.loadConfig()
			if err != nil {
				return err
			}
			if err := r.keyStore(cfg).Delete(cfg.Gateway.APIKeyEnv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed API key %s\n", cfg.Gateway.APIKeyEnv)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, setKeyCmd, deleteKeyCmd)
	return cmd
}

// keyStore is where the gateway API key is written.
func (r *runner) keyStore(cfg *config.Config) secret.SecretStore {
	if r.opts.Secrets != nil {
		return r.opts.Secrets
	}
	return secret.NewKeychainStore(cfg.Gateway.KeychainService)
}

func (r *runner) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "worksheet version %s\n", r.version)
		},
	}
}
