package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AtelierNeon/gosasl/cmd/saslctl/cmdutil"
	"github.com/AtelierNeon/gosasl/internal/config"
	"github.com/AtelierNeon/gosasl/internal/logger"
	"github.com/AtelierNeon/gosasl/pkg/sasl"
)

var (
	selectOffered   string
	selectPreferred string
	selectUsername  string
	selectPassword  string
	selectService   string
	selectOAuth     oauthFlags
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Show which mechanism the driver would choose first",
	Long: `select builds a session from --offered and --preferred mechanism
lists plus the given credentials, runs one Driver.Start against a no-op
carrier, and reports the mechanism that was chosen.`,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectOffered, "offered", "", "Comma-separated mechanisms the server offered (required)")
	selectCmd.Flags().StringVar(&selectPreferred, "preferred", "*", `Comma-separated preferred mechanisms, or "*" for all offered`)
	selectCmd.Flags().StringVar(&selectUsername, "username", "", "Username credential")
	selectCmd.Flags().StringVar(&selectPassword, "password", "", "Password credential")
	selectCmd.Flags().StringVar(&selectService, "service", "imap", "Service name (imap, smtp, ldap, ...)")
	registerOAuthFlags(&selectOAuth, selectCmd.Flags().StringVar)
	_ = selectCmd.MarkFlagRequired("offered")
}

func fullCapabilities() sasl.Capabilities {
	return sasl.Capabilities{
		DigestMd5:   true,
		Ntlm:        true,
		Gssapi:      true,
		ScramSha1:   true,
		ScramSha256: true,
	}
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmdutil.Flags.ConfigPath)
	if err != nil {
		return err
	}
	cfg.Service = selectService

	lctx := logger.NewLogContext(cmdutil.Flags.CorrelationID, cfg.Service)
	ctx := logger.WithContext(context.Background(), lctx)

	offered := parseMechList(selectOffered)
	if offered == sasl.MechNone {
		return fmt.Errorf("saslctl: --offered did not contain any recognized mechanism")
	}

	bearerToken, err := resolveBearerToken(ctx, selectOAuth)
	if err != nil {
		return err
	}

	params := &sasl.CarrierParams{
		Service:   cfg.Service,
		DefMechs:  parsePreferred(selectPreferred, offered),
		ContCode:  1,
		FinalCode: 2,
		Flags:     sasl.FlagBase64,
		SendAuth: func(context.Context, string, string) error {
			return nil
		},
		ContAuth: func(context.Context, string, string) error {
			return nil
		},
		CancelAuth: func(context.Context, string) error {
			return nil
		},
		GetMessage: func(context.Context) (string, error) {
			return "", nil
		},
	}

	caps := fullCapabilities()
	sess := sasl.NewSession(params, caps)
	sess.SetAuthMechs(offered)

	creds := sasl.Credentials{
		Username:    selectUsername,
		Password:    selectPassword,
		BearerToken: bearerToken,
		Host:        selectService,
	}

	d := &sasl.Driver{}
	progress, _, err := d.Start(ctx, sess, creds)
	if err != nil {
		logger.ErrorCtx(ctx, "mechanism selection failed", logger.Err(err))
		return fmt.Errorf("saslctl: %w", err)
	}

	if progress == sasl.Idle {
		cmd.Println("no mechanism selected")
		for _, line := range sasl.Diagnose(sess, creds, caps) {
			cmd.Println("  " + line)
		}
		logger.WarnCtx(ctx, "no mechanism selected", logger.PrefMechs(uint16(sess.PrefMech())))
		return nil
	}

	cmd.Printf("chosen mechanism: %s\n", sess.CurMech())
	logger.InfoCtx(ctx, "mechanism selected", logger.Mechanism(sess.CurMech()))
	return nil
}

func parseMechList(s string) sasl.Mech {
	var bits sasl.Mech
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		bit, consumed := sasl.Decode(name, len(name))
		if bit != sasl.MechNone && consumed == len(name) {
			bits |= bit
		}
	}
	return bits
}

func parsePreferred(s string, offered sasl.Mech) sasl.Mech {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return offered
	}
	return parseMechList(s)
}
