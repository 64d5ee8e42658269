package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fileslink/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(out, "ntfy topic not configured")
				return nil
			}
			service := notifications.NewService(cfg)
			if err := service.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				fmt.Fprintln(out, "failed to send notification")
				return err
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	})
	return notifyCmd
}
