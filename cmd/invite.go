package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/config"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/mailer"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/service"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/storage"
)

var (
	inviteEmail     string
	inviteName      string
	inviteSession   string
	inviteSendEmail bool
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Issue a recording token and print the invite link",
	RunE:  runInvite,
}

func init() {
	inviteCmd.Flags().StringVar(&inviteEmail, "email", "", "participant email (required)")
	inviteCmd.Flags().StringVar(&inviteName, "name", "", "participant name (defaults to the email local part)")
	inviteCmd.Flags().StringVar(&inviteSession, "session", "Recording Session", "session name")
	inviteCmd.Flags().BoolVar(&inviteSendEmail, "send-email", false, "deliver the invite by email")
	_ = inviteCmd.MarkFlagRequired("email")
}

func runInvite(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	tokens, err := storage.NewTokenStore(cfg.TokenDir, cfg.TokenExpiry())
	if err != nil {
		return err
	}
	tok, err := tokens.Issue(inviteEmail, inviteName, inviteSession)
	if err != nil {
		return err
	}

	links := &service.Links{BaseURL: cfg.AppBaseURL, WSBaseURL: cfg.WSBaseURL}
	fmt.Printf("token:   %s\n", tok.Token)
	fmt.Printf("link:    %s\n", links.RecordURL(tok.Token))
	fmt.Printf("expires: %s\n", tok.ExpiresAt.Format("2006-01-02 15:04:05 MST"))

	if inviteSendEmail {
		logger, _ := zap.NewDevelopment()
		defer logger.Sync()
		mail := mailer.NewClient(cfg.ResendAPIKey, cfg.ResendFromEmail, logger)
		if err := mail.SendInvite(context.Background(), tok.Email, tok.Name, tok.SessionName,
			links.RecordURL(tok.Token), cfg.TokenExpiryHours); err != nil {
			return fmt.Errorf("send invite email: %w", err)
		}
		if err := tokens.SetEmailSent(tok.Token, true); err != nil {
			return err
		}
		fmt.Printf("email:   sent to %s\n", tok.Email)
	}
	return nil
}
