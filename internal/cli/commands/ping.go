package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewPingCommand creates the ping command
func NewPingCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the configured database and invalidation bus",
		Long: `Open the configured database and ping it. When cache.redis.addr is set,
the Redis server carrying cache invalidations is subscribed to as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.dao.Ping(ctx); err != nil {
				return fmt.Errorf("pinging database: %w", err)
			}

			out := cmd.OutOrStdout()
			successColor := color.New(color.FgGreen)
			driver, _ := s.ds.DriverName()
			successColor.Fprintf(out, "✓ Database reachable (%s via %s)\n", s.ds.Dialect, driver)

			if s.notifier == nil {
				return nil
			}
			redisCfg := s.cfg.Cache.Redis
			successColor.Fprintf(out, "✓ Invalidation bus reachable (%s, channel %s)\n", redisCfg.Addr, redisCfg.Channel)
			return nil
		},
	}
}
