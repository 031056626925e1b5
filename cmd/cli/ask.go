package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/monomind/internal/app"
	"github.com/dvloznov/monomind/internal/chat"
	"github.com/dvloznov/monomind/internal/config"
	"github.com/spf13/cobra"
)

func newAskCmd(rc *rootConfig) *cobra.Command {
	var (
		userID    int64
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("missing --user")
			}

			cfg, err := config.Load(rc.ConfigPath)
			if err != nil {
				return err
			}
			ctx, log := rc.setup(cmd)

			application, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			if err := application.Start(ctx); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := application.Close(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Error closing application")
				}
			}()

			resp, err := application.Chat.Ask(ctx, chat.Request{
				UserID:    userID,
				SessionID: sessionID,
				Message:   strings.Join(args, " "),
			})
			if err != nil {
				if errors.Is(err, chat.ErrInvalidRequest) {
					return err
				}
				log.Debug().Err(err).Msg("Ask failed")
				return errors.New("the assistant is temporarily unavailable, please try again later")
			}

			out := cmd.OutOrStdout()
			if rc.JSON {
				return printJSON(out, resp)
			}
			fmt.Fprintln(out, resp.Response)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Ledger user id")
	cmd.Flags().StringVar(&sessionID, "session", "", "Conversation session id (default user-<id>)")

	return cmd
}
