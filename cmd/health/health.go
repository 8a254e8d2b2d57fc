package health

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratastor/bexec/config"
	"github.com/stratastor/bexec/pkg/health"
)

func NewHealthCmd() *cobra.Command {
	var daemons bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check bexec sidecar health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig() // cfg shouldn't be nil
			checker := health.NewHealthChecker(cfg)

			if daemons {
				body, healthy, err := checker.CheckDaemons()
				if err != nil {
					fmt.Println("Daemon health check failed: ", err)
					return nil
				}
				if !healthy {
					fmt.Println("Backup Exec daemons are NOT healthy:")
				}
				fmt.Println(body)
				return nil
			}

			ret, err := checker.CheckHealth()
			if err != nil {
				fmt.Println("Health check failed: ", err)
				return nil
			}
			fmt.Println(ret)
			return nil
		},
	}

	cmd.Flags().BoolVar(&daemons, "daemons", false, "Report the Backup Exec daemon snapshot instead of sidecar liveness")
	return cmd
}
