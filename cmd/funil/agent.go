package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/funildigital/funil/internal/config"
	"github.com/funildigital/funil/internal/db"
	"github.com/funildigital/funil/internal/models"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the sales agent roster",
	}

	cmd.AddCommand(newAgentAddCmd())
	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentSetActiveCmd("activate", true))
	cmd.AddCommand(newAgentSetActiveCmd("deactivate", false))
	return cmd
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

func newAgentAddCmd() *cobra.Command {
	var (
		configPath string
		role       string
		phone      string
		emailAddr  string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an agent to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.SeedAgents(gormDB, []config.AgentConfig{
				{Name: args[0], Role: role, Phone: phone, Email: emailAddr},
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Agent %q added (role %s)\n", args[0], role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "funil.yaml", "path to Funil config file")
	cmd.Flags().StringVar(&role, "role", "sales", "agent role")
	cmd.Flags().StringVar(&phone, "phone", "", "agent phone")
	cmd.Flags().StringVar(&emailAddr, "email", "", "agent email")
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var agents []models.Agent
			if err := gormDB.Order("name ASC").Find(&agents).Error; err != nil {
				return fmt.Errorf("list agents: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROLE\tPHONE\tACTIVE")
			for _, a := range agents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", a.Name, a.Role, a.Phone, a.Active)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "funil.yaml", "path to Funil config file")
	return cmd
}

func newAgentSetActiveCmd(use string, active bool) *cobra.Command {
	var configPath string

	short := "Remove an agent from rotation without deleting it"
	if active {
		short = "Return an agent to rotation"
	}

	cmd := &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			res := gormDB.Model(&models.Agent{}).
				Where("name = ?", args[0]).Update("active", active)
			if res.Error != nil {
				return fmt.Errorf("%s agent %q: %w", use, args[0], res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("agent %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Agent %q %sd\n", args[0], use)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "funil.yaml", "path to Funil config file")
	return cmd
}
