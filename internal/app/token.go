package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/config"
)

var errNoSecret = errors.New("JWT_SECRET is required to sign or verify tokens")

func tokenCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue or inspect session tokens",
		Commands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Print a session token for the administrator",
				Flags: append(configFlags(), &cli.StringFlag{
					Name:  "email",
					Usage: "Identity to bind; defaults to ADMIN_EMAIL",
				}),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					codec, cfg, err := tokenCodec(cmd)
					if err != nil {
						return err
					}
					email := cmd.String("email")
					if email == "" {
						email = cfg.Admin.Email
					}
					token, _, err := codec.Issue(email)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(stdout, token)
					return err
				},
			},
			{
				Name:  "verify",
				Usage: "Check a session token and print the identity it carries",
				Flags: configFlags(),
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "token"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					token := strings.TrimSpace(cmd.StringArg("token"))
					if token == "" {
						return errors.New("token argument is required")
					}
					codec, _, err := tokenCodec(cmd)
					if err != nil {
						return err
					}
					session, err := codec.Verify(token)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(stdout, "%s\texpires %s\n", session.Email, session.ExpiresAt.UTC().Format(time.RFC3339))
					return err
				},
			},
		},
	}
}

func tokenCodec(cmd *cli.Command) (*auth.Codec, config.Config, error) {
	opts := loadOptions(cmd)
	opts.SkipValidation = true
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, config.Config{}, err
	}
	if cfg.Session.Secret == "" {
		return nil, config.Config{}, errNoSecret
	}
	return auth.NewCodec(cfg.Session.Secret, cfg.Session.TTL), cfg, nil
}
